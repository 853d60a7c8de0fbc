package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/bramsnet/meteorscan/internal/errors"
	"github.com/bramsnet/meteorscan/internal/logging"
	"github.com/bramsnet/meteorscan/internal/meteor"
	"github.com/bramsnet/meteorscan/internal/mqtt"
	"github.com/bramsnet/meteorscan/internal/variation"
)

// AlertSink pushes a PSD variation verdict to an operator-facing channel.
type AlertSink interface {
	SendVariationAlert(ctx context.Context, flag variation.Flag) error
}

// ShoutrrrSink routes variation alerts through one or more shoutrrr
// service URLs (Settings.Notify.URLs), e.g. Slack/Discord/email.
type ShoutrrrSink struct {
	urls []string
}

// NewShoutrrrSink builds a sink over urls. An empty urls slice yields a
// sink whose SendVariationAlert is a no-op, so callers needn't branch on
// whether alerting is configured.
func NewShoutrrrSink(urls []string) *ShoutrrrSink {
	return &ShoutrrrSink{urls: urls}
}

// SendVariationAlert formats flag as a one-line message and sends it to
// every configured shoutrrr URL.
func (s *ShoutrrrSink) SendVariationAlert(ctx context.Context, flag variation.Flag) error {
	if len(s.urls) == 0 {
		return nil
	}

	sender, err := shoutrrr.CreateSender(s.urls...)
	if err != nil {
		return errors.New(err).Component("report").Category(errors.CategoryNetwork).
			Context("sinks", len(s.urls)).Build()
	}

	message := fmt.Sprintf("meteorscan: %s PSD %s at station %s antenna %d (value=%.4g, Q1=%.4g, Q3=%.4g) at %s",
		flag.Metric, flag.Direction, flag.Station, flag.Antenna,
		flag.Value, flag.Q1, flag.Q3, flag.At.UTC().Format(time.RFC3339))

	params := types.Params{}
	if errs := sender.Send(message, &params); len(errs) > 0 {
		for _, sendErr := range errs {
			if sendErr != nil {
				logging.Warn("shoutrrr delivery failed", "error", sendErr)
			}
		}
		return errors.Newf("shoutrrr: %d of %d sinks failed", countNonNil(errs), len(errs)).
			Component("report").Category(errors.CategoryNetwork).Build()
	}
	return nil
}

func countNonNil(errs []error) int {
	n := 0
	for _, e := range errs {
		if e != nil {
			n++
		}
	}
	return n
}

// CandidateSink publishes one accepted meteor candidate off-process.
type CandidateSink interface {
	PublishCandidate(ctx context.Context, station string, antenna int, fileStart time.Time, c meteor.Candidate) error
}

// candidatePayload is the JSON body published on a candidate's MQTT topic.
type candidatePayload struct {
	ID          string    `json:"id"`
	Station     string    `json:"station"`
	Antenna     int       `json:"antenna"`
	FileStart   time.Time `json:"file_start"`
	TimeReprSec float64   `json:"time_repr_sec"`
	FMinHz      float64   `json:"fmin_hz"`
	FMaxHz      float64   `json:"fmax_hz"`
}

// MQTTCandidateSink publishes candidates via an mqtt.Client on
// meteorscan/<location>/<antenna>/candidate, grounded on the teacher's
// internal/mqtt detection-publish pattern.
type MQTTCandidateSink struct {
	Client mqtt.Client
}

// PublishCandidate is a no-op when Client is nil or not connected, so
// callers can construct a sink unconditionally and let configuration
// decide whether anything is actually published.
func (s *MQTTCandidateSink) PublishCandidate(ctx context.Context, station string, antenna int, fileStart time.Time, c meteor.Candidate) error {
	if s.Client == nil || !s.Client.IsConnected() {
		return nil
	}

	payload := candidatePayload{
		ID:          uuid.NewString(),
		Station:     station,
		Antenna:     antenna,
		FileStart:   fileStart.UTC(),
		TimeReprSec: c.TimeReprSec,
		FMinHz:      c.FMinHz,
		FMaxHz:      c.FMaxHz,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.New(err).Component("report").Category(errors.CategoryValidation).Build()
	}

	return s.Client.Publish(ctx, mqtt.CandidateTopic(station, antenna), string(body))
}
