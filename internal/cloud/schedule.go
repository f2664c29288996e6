// SPDX-License-Identifier: MPL-2.0

package cloud

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// ScheduleResult describes the rule wired to a function.
type ScheduleResult struct {
	RuleName         string `json:"RuleName"`
	RuleArn          string `json:"RuleArn"`
	ScheduleExpr     string `json:"ScheduleExpression"`
	FailedEntryCount int32  `json:"FailedEntryCount"`
}

// Schedule lets EventBridge invoke function and creates or replaces its
// rule with expression (see ScheduleExpression).
func (c *Client) Schedule(ctx context.Context, function, expression string) (*ScheduleResult, error) {
	id, err := c.Identity(ctx)
	if err != nil {
		return nil, err
	}
	rule := RuleName(function)

	_, err = c.apis.Functions.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName: aws.String(function),
		StatementId:  aws.String(StatementID(function)),
		Action:       aws.String("lambda:InvokeFunction"),
		Principal:    aws.String(EventsPrincipal),
		SourceArn:    aws.String(EventRuleARN(id, rule)),
	})
	switch {
	case err == nil:
	case IsAPIError(err, codeResourceConflict):
		slog.Debug("invoke permission already present", "function", function)
	default:
		return nil, c.functionError("add permission to", function, err)
	}

	ruleOut, err := c.apis.Events.PutRule(ctx, &eventbridge.PutRuleInput{
		Name:               aws.String(rule),
		ScheduleExpression: aws.String(expression),
		State:              ebtypes.RuleStateEnabled,
		Description:        aws.String(fmt.Sprintf("Lambkin cron for %s Lambda function", function)),
	})
	if err != nil {
		return nil, fmt.Errorf("put rule %s: %w", rule, err)
	}

	targetsOut, err := c.apis.Events.PutTargets(ctx, &eventbridge.PutTargetsInput{
		Rule: aws.String(rule),
		Targets: []ebtypes.Target{{
			Id:  aws.String(function),
			Arn: aws.String(FunctionARN(id, function)),
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("put targets on %s: %w", rule, err)
	}

	result := &ScheduleResult{
		RuleName:         rule,
		RuleArn:          aws.ToString(ruleOut.RuleArn),
		ScheduleExpr:     expression,
		FailedEntryCount: targetsOut.FailedEntryCount,
	}
	if targetsOut.FailedEntryCount > 0 {
		msg := "unknown error"
		if len(targetsOut.FailedEntries) > 0 {
			msg = aws.ToString(targetsOut.FailedEntries[0].ErrorMessage)
		}
		return result, fmt.Errorf("put targets on %s: %d failed: %s", rule, targetsOut.FailedEntryCount, msg)
	}
	slog.Info("function scheduled", "function", function, "expression", expression)
	return result, nil
}

// Unschedule removes the rule, its target and the invoke permission created
// by Schedule. Pieces that are already gone are skipped.
func (c *Client) Unschedule(ctx context.Context, function string) error {
	rule := RuleName(function)

	if _, err := c.apis.Events.RemoveTargets(ctx, &eventbridge.RemoveTargetsInput{
		Rule: aws.String(rule),
		Ids:  []string{function},
	}); err != nil && !IsNotFound(err) {
		return fmt.Errorf("remove targets from %s: %w", rule, err)
	}

	if _, err := c.apis.Events.DeleteRule(ctx, &eventbridge.DeleteRuleInput{Name: aws.String(rule)}); err != nil && !IsNotFound(err) {
		return fmt.Errorf("delete rule %s: %w", rule, err)
	}

	if _, err := c.apis.Functions.RemovePermission(ctx, &lambda.RemovePermissionInput{
		FunctionName: aws.String(function),
		StatementId:  aws.String(StatementID(function)),
	}); err != nil && !IsNotFound(err) {
		return fmt.Errorf("remove permission from %s: %w", function, err)
	}

	slog.Info("function unscheduled", "function", function)
	return nil
}
