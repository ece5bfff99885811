// Package reports builds the summary, trends, performance and security reports.
package reports

import (
	"errors"
	"fmt"

	"github.com/technosupport/incident-analytics/internal/analytics"
)

type Kind string

const (
	KindSummary     Kind = "summary"
	KindTrends      Kind = "trends"
	KindPerformance Kind = "performance"
	KindSecurity    Kind = "security"
)

var Kinds = []Kind{KindSummary, KindTrends, KindPerformance, KindSecurity}

var ErrUnknownReportType = errors.New("invalid report type. Supported types: summary, trends, performance, security")

// ParseKind maps a request token to a Kind. Empty means summary.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindSummary, nil
	}
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownReportType, s)
}

// Report is implemented only by the four report types in this package.
type Report interface {
	Kind() Kind
	report()
}

type Header struct {
	ReportType Kind             `json:"reportType"`
	Period     analytics.Period `json:"period"`
}

func (h Header) Kind() Kind { return h.ReportType }
func (Header) report()      {}
