package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskDocumentValidate(t *testing.T) {
	t.Parallel()

	valid := TaskDocument{ID: "a", Title: "t", Priority: PriorityMedium, UpdatedAt: 100}
	assert.NoError(t, valid.Validate())

	noPriority := TaskDocument{ID: "a", UpdatedAt: 100}
	assert.NoError(t, noPriority.Validate(), "priority may be absent on the wire")

	noID := TaskDocument{UpdatedAt: 100}
	assert.ErrorContains(t, noID.Validate(), "missing id")

	noTimestamp := TaskDocument{ID: "a"}
	assert.ErrorContains(t, noTimestamp.Validate(), "updatedAt")

	badPriority := TaskDocument{ID: "a", Priority: "urgent", UpdatedAt: 100}
	assert.ErrorContains(t, badPriority.Validate(), "unknown priority")
}
