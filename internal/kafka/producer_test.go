package kafka

import (
	"testing"

	"coa-registry/internal/config"
	"coa-registry/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestTopicFor(t *testing.T) {
	p := &Producer{Topics: config.TopicConfig{
		Requests:     "coa.requests",
		Certificates: "coa.certificates",
		Artists:      "coa.artists",
	}}

	tests := []struct {
		eventType models.WorkflowEventType
		want      string
	}{
		{models.EventRequestSubmitted, "coa.requests"},
		{models.EventRequestApproved, "coa.requests"},
		{models.EventRequestRejected, "coa.requests"},
		{models.EventCertificateIssued, "coa.certificates"},
		{models.EventCertificateRevoked, "coa.certificates"},
		{models.EventArtistApproved, "coa.artists"},
		{models.EventArtistRejected, "coa.artists"},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			assert.Equal(t, tt.want, p.TopicFor(tt.eventType))
		})
	}
}
