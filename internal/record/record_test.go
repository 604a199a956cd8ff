package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrichAttachesProvenanceAndMetadata(t *testing.T) {
	rec := Enrich([]byte("line one"), "my-bucket", "logs/out.log", "us-east-1", map[string]string{
		"owner": "team-a",
	})

	assert.Equal(t, "line one", rec.String())
	assert.Equal(t, "my-bucket", rec.Fields["bucket"])
	assert.Equal(t, "logs/out.log", rec.Fields["object"])
	assert.Equal(t, "us-east-1", rec.Fields["region"])
	assert.Equal(t, "team-a", rec.Fields["owner"])
}

func TestEnrichWithNilMetadata(t *testing.T) {
	rec := Enrich([]byte("line"), "b", "k", "us-east-1", nil)
	assert.Len(t, rec.Fields, 3)
}

func TestSetOverwritesExistingKey(t *testing.T) {
	rec := New([]byte("x"))
	rec.Set("bucket", "first")
	rec.Set("bucket", "second")
	assert.Equal(t, "second", rec.Fields["bucket"])
}

func TestNewRecordHasEmptyFieldSet(t *testing.T) {
	rec := New([]byte("data"))
	assert.NotNil(t, rec.Fields)
	assert.Empty(t, rec.Fields)
}
