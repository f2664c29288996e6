// SPDX-License-Identifier: MPL-2.0

package cloud

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// RulePrefix prefixes the EventBridge rule created for each function.
	RulePrefix = "lambkin-cron-"
	// StatementPrefix prefixes the Lambda permission statement for EventBridge.
	StatementPrefix = "lambkin-allow-cloudwatch-invoke-"
	// EventsPrincipal is the service principal EventBridge invokes functions as.
	EventsPrincipal = "events.amazonaws.com"
)

// ErrScheduleExpression reports a missing or ambiguous --rate/--cron pair.
var ErrScheduleExpression = errors.New("invalid schedule expression")

// Identity locates the caller: the ARN partition, the configured region and
// the account id.
type Identity struct {
	Partition string
	Region    string
	AccountID string
}

// RoleARN returns the ARN of an IAM role given its short name. Values that
// are already ARNs are returned unchanged.
func RoleARN(id Identity, role string) string {
	if strings.HasPrefix(role, "arn:") {
		return role
	}
	return fmt.Sprintf("arn:%s:iam::%s:role/%s", id.Partition, id.AccountID, role)
}

// EventRuleARN returns the ARN of an EventBridge rule in the caller's region.
func EventRuleARN(id Identity, rule string) string {
	return fmt.Sprintf("arn:%s:events:%s:%s:rule/%s", id.Partition, id.Region, id.AccountID, rule)
}

// FunctionARN returns the unqualified ARN of a Lambda function.
func FunctionARN(id Identity, function string) string {
	return fmt.Sprintf("arn:%s:lambda:%s:%s:function:%s", id.Partition, id.Region, id.AccountID, function)
}

// RuleName is the EventBridge rule name used to schedule function.
func RuleName(function string) string {
	return RulePrefix + function
}

// StatementID is the Lambda policy statement that lets the rule invoke function.
func StatementID(function string) string {
	return StatementPrefix + function
}

// ScheduleExpression wraps exactly one of rate ("5 minutes") or cron
// ("0 8 1 * ? *") as an EventBridge schedule expression.
func ScheduleExpression(rate, cron string) (string, error) {
	rate, cron = strings.TrimSpace(rate), strings.TrimSpace(cron)
	switch {
	case rate != "" && cron != "":
		return "", fmt.Errorf("%w: use either --rate or --cron, not both", ErrScheduleExpression)
	case rate != "":
		return "rate(" + rate + ")", nil
	case cron != "":
		return "cron(" + cron + ")", nil
	default:
		return "", fmt.Errorf("%w: provide --rate or --cron", ErrScheduleExpression)
	}
}
