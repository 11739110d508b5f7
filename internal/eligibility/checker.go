// Package eligibility asks the submission service whether a submission may
// proceed and which archive format it expects.
package eligibility

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/osvaldoandrade/repozip/internal/tracing"
	"github.com/osvaldoandrade/repozip/internal/transport"
	"github.com/osvaldoandrade/repozip/pkg/domain"

	"go.opentelemetry.io/otel/attribute"
)

// Timeout bounds the whole /check exchange.
const Timeout = 10 * time.Second

const checkPath = "/check"

type Checker struct {
	client *transport.Client
}

func New(serverURL, apiKey string) *Checker {
	return &Checker{client: transport.New(serverURL, apiKey, Timeout)}
}

// NewWithClient is used by tests to inject a preconfigured transport.
func NewWithClient(c *transport.Client) *Checker {
	return &Checker{client: c}
}

// Check issues GET /check. Non-2xx responses are ServerRejected, bodies
// missing a required field are ProtocolError. A decision that does not allow
// submission is returned without error.
func (c *Checker) Check(ctx context.Context, competitionID string) (decision domain.EligibilityDecision, err error) {
	ctx, span := tracing.Start(ctx, "eligibility.check", attribute.String("competition", competitionID))
	defer func() { tracing.End(span, err) }()

	var query url.Values
	if strings.TrimSpace(competitionID) != "" {
		query = url.Values{"competition": {competitionID}}
	}
	req, err := c.client.NewRequest(ctx, http.MethodGet, checkPath, query, nil)
	if err != nil {
		return domain.EligibilityDecision{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do("eligibility check", req)
	if err != nil {
		return domain.EligibilityDecision{}, err
	}
	if !resp.OK() {
		return domain.EligibilityDecision{}, domain.Rejected("eligibility check", resp.Status, strings.TrimSpace(string(resp.Body)))
	}
	decision, err = Decode(resp.Body)
	if err != nil {
		return domain.EligibilityDecision{}, err
	}
	span.SetAttributes(
		attribute.Bool("approved", decision.Approved),
		attribute.Int("remaining_attempts", decision.RemainingAttempts),
	)
	return decision, nil
}

// Decode interprets a /check body.
func Decode(body []byte) (domain.EligibilityDecision, error) {
	var raw domain.CheckResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.EligibilityDecision{}, domain.Wrap(domain.KindProtocol, "decode eligibility", err)
	}
	var missing []string
	if raw.SubmissionApproved == nil {
		missing = append(missing, "submission_approved")
	}
	if raw.RequiredFormat == nil {
		missing = append(missing, "required_format")
	}
	if raw.RemainingAttempts == nil {
		missing = append(missing, "remaining_attempts")
	}
	if len(missing) > 0 {
		return domain.EligibilityDecision{}, domain.Errorf(domain.KindProtocol, "decode eligibility", "missing field(s): %s", strings.Join(missing, ", "))
	}

	d := domain.EligibilityDecision{
		Approved:          *raw.SubmissionApproved,
		RequiredFormat:    strings.TrimSpace(*raw.RequiredFormat),
		RemainingAttempts: *raw.RemainingAttempts,
	}
	if raw.LastSubmissionByUser != nil {
		ts := time.Unix(*raw.LastSubmissionByUser, 0)
		d.LastSubmission = &ts
	}
	if raw.CompetitionName != nil {
		d.CompetitionName = strings.TrimSpace(*raw.CompetitionName)
	}
	return d, nil
}

// Describe renders the decision for the operator.
func Describe(d domain.EligibilityDecision, now time.Time, since func(time.Time) string) []string {
	lines := make([]string, 0, 5)
	if d.CompetitionName != "" {
		lines = append(lines, "Competition: "+d.CompetitionName)
	}
	lines = append(lines,
		fmt.Sprintf("Approved: %v", d.Approved),
		"Required format: "+d.RequiredFormat,
		fmt.Sprintf("Remaining attempts: %d", d.RemainingAttempts),
	)
	if _, ok := d.SinceLast(now); ok && since != nil {
		lines = append(lines, "Last submission: "+since(*d.LastSubmission))
	} else {
		lines = append(lines, "Last submission: never")
	}
	return lines
}
