// Package notification parses and represents S3 event notifications as
// delivered inside an SQS message body.
//
// https://docs.aws.amazon.com/AmazonS3/latest/dev/notification-content-structure.html
package notification

import (
	"encoding/json"
	"errors"
	"strings"
)

// S3EventNotification is a finite ordered sequence of S3EventRecord.
type S3EventNotification struct {
	Records []S3EventRecord `json:"Records"`
}

// S3EventRecord describes one S3 object event.
type S3EventRecord struct {
	EventVersion string    `json:"eventVersion"`
	EventSource  string    `json:"eventSource"`
	AWSRegion    string    `json:"awsRegion"`
	EventName    EventName `json:"eventName"`
	S3           S3Entity  `json:"s3"`
}

// EventName is the "Kind:Name" pair S3 encodes as a single string, e.g.
// "ObjectCreated:Put".
type EventName struct {
	Kind string
	Name string
}

// S3Entity carries the bucket/object identifying the notified object.
type S3Entity struct {
	Bucket S3Bucket `json:"bucket"`
	Object S3Object `json:"object"`
}

// S3Bucket names the bucket an event occurred in.
type S3Bucket struct {
	Name string `json:"name"`
}

// S3Object names the key an event occurred on.
type S3Object struct {
	Key string `json:"key"`
}

var errMissingSeparator = errors.New("event name missing ':' separator")

// UnmarshalJSON splits "Kind:Name" on the first ':'; both halves must
// be non-empty.
func (n *EventName) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	idx := strings.IndexByte(s, ':')
	if idx < 0 {
		return errMissingSeparator
	}

	kind, name := s[:idx], s[idx+1:]
	if kind == "" || name == "" {
		return errMissingSeparator
	}

	n.Kind, n.Name = kind, name
	return nil
}

// MarshalJSON reserializes "Kind:Name", the inverse of UnmarshalJSON.
func (n EventName) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Kind + ":" + n.Name)
}

// Parse decodes an SQS message body into an S3EventNotification.
func Parse(body string) (S3EventNotification, error) {
	var n S3EventNotification
	if body == "" {
		return n, errors.New("empty message body")
	}
	err := json.Unmarshal([]byte(body), &n)
	return n, err
}
