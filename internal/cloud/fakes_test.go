// SPDX-License-Identifier: MPL-2.0

package cloud

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"
)

func apiError(code, msg string) error {
	return &smithy.GenericAPIError{Code: code, Message: msg}
}

// fakeLambda is an in-memory Lambda that records every call.
type fakeLambda struct {
	mu          sync.Mutex
	functions   map[string]*lambda.CreateFunctionInput
	permissions map[string]*lambda.AddPermissionInput
	calls       []string
	pageSize    int

	// failures queued per operation, consumed front to back
	failures map[string][]error

	invokeOut *lambda.InvokeOutput
	lastCode  *lambda.UpdateFunctionCodeInput
}

func newFakeLambda(names ...string) *fakeLambda {
	f := &fakeLambda{
		functions:   map[string]*lambda.CreateFunctionInput{},
		permissions: map[string]*lambda.AddPermissionInput{},
		failures:    map[string][]error{},
		pageSize:    2,
	}
	for _, n := range names {
		f.functions[n] = &lambda.CreateFunctionInput{FunctionName: aws.String(n)}
	}
	return f
}

func (f *fakeLambda) fail(op string, errs ...error) {
	f.failures[op] = append(f.failures[op], errs...)
}

func (f *fakeLambda) record(op string) error {
	f.calls = append(f.calls, op)
	if queued := f.failures[op]; len(queued) > 0 {
		f.failures[op] = queued[1:]
		return queued[0]
	}
	return nil
}

func (f *fakeLambda) GetFunction(_ context.Context, in *lambda.GetFunctionInput, _ ...func(*lambda.Options)) (*lambda.GetFunctionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetFunction"); err != nil {
		return nil, err
	}
	if _, ok := f.functions[aws.ToString(in.FunctionName)]; !ok {
		return nil, apiError(codeResourceNotFound, "Function not found")
	}
	return &lambda.GetFunctionOutput{}, nil
}

func (f *fakeLambda) ListFunctions(_ context.Context, in *lambda.ListFunctionsInput, _ ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListFunctions"); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.functions))
	for n := range f.functions {
		names = append(names, n)
	}
	slices.Sort(names)
	start := 0
	if in.Marker != nil {
		for i, n := range names {
			if n == aws.ToString(in.Marker) {
				start = i
			}
		}
	}
	end := min(start+f.pageSize, len(names))
	out := &lambda.ListFunctionsOutput{}
	for _, n := range names[start:end] {
		out.Functions = append(out.Functions, lambdatypes.FunctionConfiguration{FunctionName: aws.String(n)})
	}
	if end < len(names) {
		out.NextMarker = aws.String(names[end])
	}
	return out, nil
}

func (f *fakeLambda) CreateFunction(_ context.Context, in *lambda.CreateFunctionInput, _ ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateFunction"); err != nil {
		return nil, err
	}
	f.functions[aws.ToString(in.FunctionName)] = in
	return &lambda.CreateFunctionOutput{
		FunctionName: in.FunctionName,
		Handler:      in.Handler,
		Role:         in.Role,
		Runtime:      in.Runtime,
		Timeout:      in.Timeout,
		MemorySize:   in.MemorySize,
		Description:  in.Description,
		CodeSize:     int64(len(in.Code.ZipFile)),
	}, nil
}

func (f *fakeLambda) UpdateFunctionCode(_ context.Context, in *lambda.UpdateFunctionCodeInput, _ ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateFunctionCode"); err != nil {
		return nil, err
	}
	f.lastCode = in
	return &lambda.UpdateFunctionCodeOutput{FunctionName: in.FunctionName}, nil
}

func (f *fakeLambda) UpdateFunctionConfiguration(_ context.Context, in *lambda.UpdateFunctionConfigurationInput, _ ...func(*lambda.Options)) (*lambda.UpdateFunctionConfigurationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateFunctionConfiguration"); err != nil {
		return nil, err
	}
	return &lambda.UpdateFunctionConfigurationOutput{
		FunctionName: in.FunctionName,
		Role:         in.Role,
		Timeout:      in.Timeout,
		MemorySize:   in.MemorySize,
		Description:  in.Description,
	}, nil
}

func (f *fakeLambda) DeleteFunction(_ context.Context, in *lambda.DeleteFunctionInput, _ ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteFunction"); err != nil {
		return nil, err
	}
	name := aws.ToString(in.FunctionName)
	if _, ok := f.functions[name]; !ok {
		return nil, apiError(codeResourceNotFound, "Function not found: "+name)
	}
	delete(f.functions, name)
	return &lambda.DeleteFunctionOutput{}, nil
}

func (f *fakeLambda) Invoke(_ context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Invoke"); err != nil {
		return nil, err
	}
	if _, ok := f.functions[aws.ToString(in.FunctionName)]; !ok {
		return nil, apiError(codeResourceNotFound, "Function not found")
	}
	if in.LogType != lambdatypes.LogTypeTail {
		return nil, apiError(codeInvalidParameterValue, "expected Tail")
	}
	return f.invokeOut, nil
}

func (f *fakeLambda) AddPermission(_ context.Context, in *lambda.AddPermissionInput, _ ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AddPermission"); err != nil {
		return nil, err
	}
	key := aws.ToString(in.StatementId)
	if _, ok := f.permissions[key]; ok {
		return nil, apiError(codeResourceConflict, "The statement id provided already exists")
	}
	f.permissions[key] = in
	return &lambda.AddPermissionOutput{}, nil
}

func (f *fakeLambda) RemovePermission(_ context.Context, in *lambda.RemovePermissionInput, _ ...func(*lambda.Options)) (*lambda.RemovePermissionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RemovePermission"); err != nil {
		return nil, err
	}
	key := aws.ToString(in.StatementId)
	if _, ok := f.permissions[key]; !ok {
		return nil, apiError(codeResourceNotFound, "No policy found")
	}
	delete(f.permissions, key)
	return &lambda.RemovePermissionOutput{}, nil
}

// fakeEvents is an in-memory EventBridge.
type fakeEvents struct {
	mu      sync.Mutex
	rules   map[string]*eventbridge.PutRuleInput
	targets map[string][]ebtypes.Target
	failPut int32
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{rules: map[string]*eventbridge.PutRuleInput{}, targets: map[string][]ebtypes.Target{}}
}

func (e *fakeEvents) PutRule(_ context.Context, in *eventbridge.PutRuleInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutRuleOutput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules[aws.ToString(in.Name)] = in
	return &eventbridge.PutRuleOutput{RuleArn: aws.String(EventRuleARN(testIdentity, aws.ToString(in.Name)))}, nil
}

func (e *fakeEvents) PutTargets(_ context.Context, in *eventbridge.PutTargetsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutTargetsOutput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failPut > 0 {
		return &eventbridge.PutTargetsOutput{
			FailedEntryCount: e.failPut,
			FailedEntries:    []ebtypes.PutTargetsResultEntry{{ErrorMessage: aws.String("target quota exceeded")}},
		}, nil
	}
	e.targets[aws.ToString(in.Rule)] = in.Targets
	return &eventbridge.PutTargetsOutput{}, nil
}

func (e *fakeEvents) RemoveTargets(_ context.Context, in *eventbridge.RemoveTargetsInput, _ ...func(*eventbridge.Options)) (*eventbridge.RemoveTargetsOutput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rule := aws.ToString(in.Rule)
	if _, ok := e.rules[rule]; !ok {
		return nil, apiError(codeResourceNotFound, "Rule does not exist")
	}
	delete(e.targets, rule)
	return &eventbridge.RemoveTargetsOutput{}, nil
}

func (e *fakeEvents) DeleteRule(_ context.Context, in *eventbridge.DeleteRuleInput, _ ...func(*eventbridge.Options)) (*eventbridge.DeleteRuleOutput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.rules, aws.ToString(in.Name))
	return &eventbridge.DeleteRuleOutput{}, nil
}

// fakeSTS returns a fixed caller.
type fakeSTS struct {
	calls int
	arn   string
}

func (s *fakeSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	s.calls++
	arn := s.arn
	if arn == "" {
		arn = "arn:aws:iam::" + testIdentity.AccountID + ":user/dev"
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String(testIdentity.AccountID), Arn: aws.String(arn)}, nil
}

// fakeUploader captures uploaded objects.
type fakeUploader struct {
	bucket, key string
	body        []byte
}

func (u *fakeUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	u.bucket, u.key = aws.ToString(in.Bucket), aws.ToString(in.Key)
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	u.body = data
	return &manager.UploadOutput{Key: in.Key}, nil
}

// newTestClient wires fakes into a Client that retries without sleeping.
func newTestClient(fn *fakeLambda, ev *fakeEvents, up Uploader, bucket string) (*Client, *fakeSTS) {
	id := &fakeSTS{}
	c := NewClient(APIs{Functions: fn, Events: ev, Identity: id, Uploader: up}, testIdentity.Region, bucket)
	c.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
	}
	return c, id
}
