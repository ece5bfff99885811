package reports

import (
	"context"

	"github.com/technosupport/incident-analytics/internal/analytics"
	"github.com/technosupport/incident-analytics/internal/data"
)

// SecurityTypes are the incident types a security report covers.
var SecurityTypes = []data.IncidentType{data.TypeGunThreat, data.TypeUnauthorisedAccess, data.TypePerimeterBreach}

const latestCriticalLimit = 20

type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
)

const (
	FactorGunThreats         = "Gun threats detected"
	FactorUnauthorizedAccess = "High unauthorized access attempts"
	FactorPerimeterBreaches  = "Multiple perimeter breaches"
	FactorUnresolved         = "Unresolved critical incidents"
)

type SecuritySummary struct {
	TotalCriticalIncidents int `json:"totalCriticalIncidents"`
	UnauthorizedAccess     int `json:"unauthorizedAccess"`
	GunThreats             int `json:"gunThreats"`
	PerimeterBreaches      int `json:"perimeterBreaches"`
	UnresolvedCritical     int `json:"unresolvedCritical"`
}

type RiskAssessment struct {
	Level   RiskLevel `json:"level"`
	Factors []string  `json:"factors"`
}

type SecurityReport struct {
	Header
	Summary           SecuritySummary `json:"summary"`
	CriticalIncidents []data.Incident `json:"criticalIncidents"`
	RiskAssessment    RiskAssessment  `json:"riskAssessment"`
}

// AssessRisk classifies the window. Factors keep a fixed order.
func AssessRisk(s SecuritySummary) RiskAssessment {
	level := RiskLow
	switch {
	case s.GunThreats > 0:
		level = RiskHigh
	case s.UnauthorizedAccess > 5:
		level = RiskMedium
	}

	factors := []string{}
	if s.GunThreats > 0 {
		factors = append(factors, FactorGunThreats)
	}
	if s.UnauthorizedAccess > 10 {
		factors = append(factors, FactorUnauthorizedAccess)
	}
	if s.PerimeterBreaches > 5 {
		factors = append(factors, FactorPerimeterBreaches)
	}
	if s.UnresolvedCritical > 0 {
		factors = append(factors, FactorUnresolved)
	}
	return RiskAssessment{Level: level, Factors: factors}
}

func (g *Generator) security(ctx context.Context, scope analytics.Scope) (*SecurityReport, error) {
	f := scope.Filter()
	f.Types = SecurityTypes

	// One read gives every count and the latest slice, so they agree.
	incidents, err := g.engine.Store().ListIncidents(ctx, f, data.ListOptions{WithCamera: true})
	if err != nil {
		return nil, err
	}

	var s SecuritySummary
	for _, i := range incidents {
		switch i.Type {
		case data.TypeGunThreat:
			s.GunThreats++
		case data.TypeUnauthorisedAccess:
			s.UnauthorizedAccess++
		case data.TypePerimeterBreach:
			s.PerimeterBreaches++
		}
		if !i.Resolved {
			s.UnresolvedCritical++
		}
	}
	s.TotalCriticalIncidents = len(incidents)

	latest := incidents
	if len(latest) > latestCriticalLimit {
		latest = latest[:latestCriticalLimit]
	}
	if latest == nil {
		latest = []data.Incident{}
	}

	return &SecurityReport{
		Header:            Header{ReportType: KindSecurity, Period: analytics.PeriodOf(scope.Window)},
		Summary:           s,
		CriticalIncidents: latest,
		RiskAssessment:    AssessRisk(s),
	}, nil
}
