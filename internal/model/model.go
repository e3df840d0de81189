// internal/model/model.go
package model

import "time"

// UnitRecord is one aggregation subject: an SDK language or an AWS service.
type UnitRecord struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	TestsTotal  int64          `json:"tests_total"`
	TestsPassed int64          `json:"tests_passed"`
	TestsFailed int64          `json:"tests_failed"`
	Details     []DetailRecord `json:"details,omitempty"`
}

// DisplayName returns Name, falling back to ID.
func (u UnitRecord) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

// DetailRecord is one operation or method within a unit.
type DetailRecord struct {
	Name  string   `json:"name"`
	Found bool     `json:"found"`
	Tags  []string `json:"tags"`
}

// AggregateTotals holds totals derived from a unit collection.
type AggregateTotals struct {
	TotalUnits  int     `json:"total_units"`
	TotalTests  int64   `json:"total_tests"`
	TotalPassed int64   `json:"total_passed"`
	TotalFailed int64   `json:"total_failed"`
	PassRate    float64 `json:"pass_rate"`
}

// Severity classifies a pass rate.
type Severity string

const (
	SeverityGood     Severity = "good"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// UnitSummary is a unit with its derived pass rate and severity.
type UnitSummary struct {
	UnitRecord
	PassRate float64  `json:"pass_rate"`
	Severity Severity `json:"severity"`
}

// Inconsistency describes a unit whose counts do not add up.
type Inconsistency struct {
	UnitID string `json:"unit_id"`
	Reason string `json:"reason"`
}

// CoverageTotals counts documented and undocumented operations.
type CoverageTotals struct {
	Operations int64   `json:"operations"`
	Found      int64   `json:"found"`
	Missing    int64   `json:"missing"`
	Percent    float64 `json:"percent"`
}

// LanguageGap lists the services that have no tests for a language.
type LanguageGap struct {
	Language string   `json:"language"`
	Services []string `json:"services"`
}

// StatsReport is the output of the stats command.
type StatsReport struct {
	GeneratedAt     string          `json:"generated_at"`
	Source          string          `json:"source"`
	Totals          AggregateTotals `json:"totals"`
	Ignored         int64           `json:"ignored"`
	Breakdown       []UnitSummary   `json:"breakdown"`
	Inconsistencies []Inconsistency `json:"inconsistencies,omitempty"`
}

// DetailReport is the drill-down view of a single unit.
type DetailReport struct {
	Unit    UnitSummary    `json:"unit"`
	Details []DetailRecord `json:"details"`
	Tags    []string       `json:"tags"`
	Totals  CoverageTotals `json:"totals"`
	Filter  DetailFilter   `json:"filter"`
}

// DetailFilter records the secondary filters applied to a drill-down.
type DetailFilter struct {
	MissingOnly bool   `json:"missing_only,omitempty"`
	Tag         string `json:"tag,omitempty"`
	SortBy      string `json:"sort_by,omitempty"`
}

// CoverageReport is the output of the coverage commands.
type CoverageReport struct {
	GeneratedAt string          `json:"generated_at"`
	Source      string          `json:"source"`
	Query       string          `json:"query,omitempty"`
	Totals      AggregateTotals `json:"totals"`
	Coverage    CoverageTotals  `json:"coverage"`
	Services    []UnitSummary   `json:"services"`
	Selected    *DetailReport   `json:"selected,omitempty"`
}

// NoTestsReport is the output of the no-tests command.
type NoTestsReport struct {
	GeneratedAt string        `json:"generated_at"`
	Source      string        `json:"source"`
	Languages   []LanguageGap `json:"languages"`
}

// TaskDefinition holds the metadata of an ECS task definition.
type TaskDefinition struct {
	Arn              string `json:"arn"`
	Family           string `json:"family"`
	TaskRoleArn      string `json:"task_role_arn,omitempty"`
	ExecutionRoleArn string `json:"execution_role_arn,omitempty"`
	NetworkMode      string `json:"network_mode,omitempty"`
	CPU              string `json:"cpu,omitempty"`
	Memory           string `json:"memory,omitempty"`
}

// RuleTarget is an ECS target attached to an EventBridge rule.
type RuleTarget struct {
	ID                string   `json:"id"`
	Arn               string   `json:"arn"`
	TaskDefinitionArn string   `json:"task_definition_arn,omitempty"`
	LaunchType        string   `json:"launch_type,omitempty"`
	Subnets           []string `json:"subnets,omitempty"`
	SecurityGroups    []string `json:"security_groups,omitempty"`
	AssignPublicIP    string   `json:"assign_public_ip,omitempty"`
}

// ScheduleRule is an EventBridge rule that launches ECS tasks.
type ScheduleRule struct {
	Name         string       `json:"name"`
	Expression   string       `json:"schedule_expression"`
	Description  string       `json:"description,omitempty"`
	State        string       `json:"state"`
	ScheduleText string       `json:"schedule_text"`
	NextRun      *time.Time   `json:"next_run,omitempty"`
	Targets      []RuleTarget `json:"targets,omitempty"`
}

// TaskInspection is the result of inspecting a Fargate setup.
type TaskInspection struct {
	Family         string         `json:"family"`
	TaskDefinition TaskDefinition `json:"task_definition"`
	ClusterArn     string         `json:"cluster_arn,omitempty"`
	RunningTasks   int            `json:"running_tasks"`
	Rules          []ScheduleRule `json:"rules,omitempty"`
}

// ScheduleRequest describes an ECS task to run on a schedule.
type ScheduleRequest struct {
	RuleName          string   `json:"ruleName,omitempty"`
	TaskDefinitionArn string   `json:"taskDefinitionArn"`
	ClusterName       string   `json:"clusterName"`
	Cron              string   `json:"cron"`
	RoleArn           string   `json:"roleArn,omitempty"`
	Subnets           []string `json:"subnets,omitempty"`
	SecurityGroups    []string `json:"securityGroups,omitempty"`
	AssignPublicIP    bool     `json:"assignPublicIp,omitempty"`
}

// RunRequest describes an on-demand ECS task run.
type RunRequest struct {
	TaskDefinitionArn string
	ClusterName       string
	Subnets           []string
	SecurityGroups    []string
	AssignPublicIP    bool
}
