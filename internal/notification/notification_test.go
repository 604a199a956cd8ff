package notification

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectCreatedNotification(t *testing.T) {
	body := `{"Records":[{"eventVersion":"2.1","eventSource":"aws:s3","awsRegion":"us-east-1","eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"my-bucket"},"object":{"key":"logs/out.log"}}}]}`

	notif, err := Parse(body)
	require.NoError(t, err)
	require.Len(t, notif.Records, 1)

	rec := notif.Records[0]
	assert.Equal(t, "2.1", rec.EventVersion)
	assert.Equal(t, "aws:s3", rec.EventSource)
	assert.Equal(t, "us-east-1", rec.AWSRegion)
	assert.Equal(t, "ObjectCreated", rec.EventName.Kind)
	assert.Equal(t, "Put", rec.EventName.Name)
	assert.Equal(t, "my-bucket", rec.S3.Bucket.Name)
	assert.Equal(t, "logs/out.log", rec.S3.Object.Key)
}

func TestParseEmptyBodyIsInvalid(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)
}

func TestParseMalformedJSONIsInvalid(t *testing.T) {
	_, err := Parse("{not json")
	assert.Error(t, err)
}

func TestEventNameMissingSeparatorFailsToParse(t *testing.T) {
	_, err := Parse(`{"Records":[{"eventName":"ObjectCreatedPut","s3":{"bucket":{"name":"b"},"object":{"key":"k"}}}]}`)
	assert.Error(t, err)
}

func TestEventNameEmptyHalvesFailToParse(t *testing.T) {
	for _, name := range []string{":Put", "ObjectCreated:", ":"} {
		_, err := Parse(`{"Records":[{"eventName":"` + name + `","s3":{"bucket":{"name":"b"},"object":{"key":"k"}}}]}`)
		assert.Errorf(t, err, "expected %q to fail to parse", name)
	}
}

func TestEventNameRoundTrip(t *testing.T) {
	cases := []EventName{
		{Kind: "ObjectCreated", Name: "Put"},
		{Kind: "ObjectRemoved", Name: "Delete"},
		{Kind: "a", Name: "b"},
	}

	for _, in := range cases {
		encoded, err := json.Marshal(in)
		require.NoError(t, err)
		assert.Equal(t, `"`+in.Kind+":"+in.Name+`"`, string(encoded))

		var out EventName
		require.NoError(t, json.Unmarshal(encoded, &out))
		assert.Equal(t, in, out)
	}
}

func TestParseMultipleRecordsPreservesOrder(t *testing.T) {
	body := `{"Records":[
		{"eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"b"},"object":{"key":"first"}}},
		{"eventName":"ObjectRemoved:Delete","s3":{"bucket":{"name":"b"},"object":{"key":"second"}}}
	]}`

	notif, err := Parse(body)
	require.NoError(t, err)
	require.Len(t, notif.Records, 2)
	assert.Equal(t, "first", notif.Records[0].S3.Object.Key)
	assert.Equal(t, "second", notif.Records[1].S3.Object.Key)
}
