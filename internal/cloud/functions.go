// SPDX-License-Identifier: MPL-2.0

package cloud

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArtifactPrefix is the S3 key prefix for staged archives.
const ArtifactPrefix = "lambkin/"

type (
	// PublishInput describes a function deployment.
	PublishInput struct {
		Function    string
		Description string
		Runtime     string
		// Role is a role short name or full ARN.
		Role    string
		Timeout int32
		Memory  int32
		// ArchivePath is the zip produced by the archive builder.
		ArchivePath string
	}

	// PublishResult reports what Publish did.
	PublishResult struct {
		Created  bool         `json:"created"`
		Function FunctionInfo `json:"function"`
	}

	// FunctionInfo is the configuration Lambda reports after a deployment.
	FunctionInfo struct {
		CodeSha256   string `json:"CodeSha256,omitempty"`
		CodeSize     int64  `json:"CodeSize"`
		Description  string `json:"Description,omitempty"`
		FunctionArn  string `json:"FunctionArn,omitempty"`
		FunctionName string `json:"FunctionName"`
		Handler      string `json:"Handler,omitempty"`
		LastModified string `json:"LastModified,omitempty"`
		MemorySize   int32  `json:"MemorySize"`
		Role         string `json:"Role,omitempty"`
		Runtime      string `json:"Runtime,omitempty"`
		State        string `json:"State,omitempty"`
		Timeout      int32  `json:"Timeout"`
		Version      string `json:"Version,omitempty"`
	}

	// InvokeResult is the outcome of a synchronous invocation.
	InvokeResult struct {
		StatusCode int32
		// FunctionError is set when the handler raised ("Unhandled").
		FunctionError string
		// Logs holds the tail of the execution log, one entry per line.
		Logs    []string
		Payload []byte
	}

	// code is either inline zip bytes or an S3 location.
	code struct {
		zip    []byte
		bucket string
		key    string
	}
)

// ListFunctions returns the names of all functions in the region.
func (c *Client) ListFunctions(ctx context.Context) ([]string, error) {
	var names []string
	pages := lambda.NewListFunctionsPaginator(c.apis.Functions, &lambda.ListFunctionsInput{})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list functions: %w", err)
		}
		for _, fn := range page.Functions {
			names = append(names, aws.ToString(fn.FunctionName))
		}
	}
	return names, nil
}

// Exists reports whether function is deployed.
func (c *Client) Exists(ctx context.Context, function string) (bool, error) {
	_, err := c.apis.Functions.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(function)})
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("get function %s: %w", function, err)
	}
}

// Publish creates the function, or updates its code and configuration when
// it already exists.
func (c *Client) Publish(ctx context.Context, in PublishInput) (*PublishResult, error) {
	id, err := c.Identity(ctx)
	if err != nil {
		return nil, err
	}
	role := RoleARN(id, in.Role)

	exists, err := c.Exists(ctx, in.Function)
	if err != nil {
		return nil, err
	}

	src, err := c.code(ctx, in)
	if err != nil {
		return nil, err
	}

	if exists {
		info, err := c.update(ctx, in, role, src)
		if err != nil {
			return nil, err
		}
		slog.Info("function updated", "function", in.Function)
		return &PublishResult{Function: info}, nil
	}

	info, err := c.create(ctx, in, role, src)
	if err != nil {
		return nil, err
	}
	slog.Info("function created", "function", in.Function)
	return &PublishResult{Created: true, Function: info}, nil
}

func (c *Client) update(ctx context.Context, in PublishInput, role string, src code) (FunctionInfo, error) {
	codeIn := &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(in.Function),
		Publish:      true,
	}
	if src.bucket != "" {
		codeIn.S3Bucket, codeIn.S3Key = aws.String(src.bucket), aws.String(src.key)
	} else {
		codeIn.ZipFile = src.zip
	}
	if _, err := c.apis.Functions.UpdateFunctionCode(ctx, codeIn); err != nil {
		return FunctionInfo{}, fmt.Errorf("update function code: %w", err)
	}

	var out *lambda.UpdateFunctionConfigurationOutput
	// Lambda rejects configuration changes while the code update is in progress.
	err := c.retry(ctx, "update function configuration", func(err error) bool {
		return IsAPIError(err, codeResourceConflict)
	}, func() (err error) {
		out, err = c.apis.Functions.UpdateFunctionConfiguration(ctx, &lambda.UpdateFunctionConfigurationInput{
			FunctionName: aws.String(in.Function),
			Description:  aws.String(in.Description),
			Role:         aws.String(role),
			Timeout:      aws.Int32(in.Timeout),
			MemorySize:   aws.Int32(in.Memory),
		})
		return err
	})
	if err != nil {
		return FunctionInfo{}, fmt.Errorf("update function configuration: %w", err)
	}

	return FunctionInfo{
		CodeSha256:   aws.ToString(out.CodeSha256),
		CodeSize:     out.CodeSize,
		Description:  aws.ToString(out.Description),
		FunctionArn:  aws.ToString(out.FunctionArn),
		FunctionName: aws.ToString(out.FunctionName),
		Handler:      aws.ToString(out.Handler),
		LastModified: aws.ToString(out.LastModified),
		MemorySize:   aws.ToInt32(out.MemorySize),
		Role:         aws.ToString(out.Role),
		Runtime:      string(out.Runtime),
		State:        string(out.State),
		Timeout:      aws.ToInt32(out.Timeout),
		Version:      aws.ToString(out.Version),
	}, nil
}

func (c *Client) create(ctx context.Context, in PublishInput, role string, src code) (FunctionInfo, error) {
	fnCode := &lambdatypes.FunctionCode{}
	if src.bucket != "" {
		fnCode.S3Bucket, fnCode.S3Key = aws.String(src.bucket), aws.String(src.key)
	} else {
		fnCode.ZipFile = src.zip
	}

	var out *lambda.CreateFunctionOutput
	err := c.retry(ctx, "create function", isRolePropagation, func() (err error) {
		out, err = c.apis.Functions.CreateFunction(ctx, &lambda.CreateFunctionInput{
			FunctionName: aws.String(in.Function),
			Description:  aws.String(in.Description),
			Runtime:      lambdatypes.Runtime(in.Runtime),
			Role:         aws.String(role),
			Handler:      aws.String(in.Function + ".handler"),
			Code:         fnCode,
			Timeout:      aws.Int32(in.Timeout),
			MemorySize:   aws.Int32(in.Memory),
		})
		return err
	})
	if err != nil {
		return FunctionInfo{}, fmt.Errorf("create function: %w", err)
	}

	return FunctionInfo{
		CodeSha256:   aws.ToString(out.CodeSha256),
		CodeSize:     out.CodeSize,
		Description:  aws.ToString(out.Description),
		FunctionArn:  aws.ToString(out.FunctionArn),
		FunctionName: aws.ToString(out.FunctionName),
		Handler:      aws.ToString(out.Handler),
		LastModified: aws.ToString(out.LastModified),
		MemorySize:   aws.ToInt32(out.MemorySize),
		Role:         aws.ToString(out.Role),
		Runtime:      string(out.Runtime),
		State:        string(out.State),
		Timeout:      aws.ToInt32(out.Timeout),
		Version:      aws.ToString(out.Version),
	}, nil
}

// code reads the archive inline, or uploads it to the artifact bucket.
func (c *Client) code(ctx context.Context, in PublishInput) (code, error) {
	if c.bucket == "" {
		data, err := os.ReadFile(in.ArchivePath)
		if err != nil {
			return code{}, fmt.Errorf("read archive: %w", err)
		}
		return code{zip: data}, nil
	}
	if c.apis.Uploader == nil {
		return code{}, ErrNoArtifactBucket
	}

	f, err := os.Open(in.ArchivePath)
	if err != nil {
		return code{}, fmt.Errorf("read archive: %w", err)
	}
	defer f.Close()

	key := ArtifactPrefix + in.Function + "/" + filepath.Base(in.ArchivePath)
	if _, err := c.apis.Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return code{}, fmt.Errorf("upload archive to s3://%s/%s: %w", c.bucket, key, err)
	}
	slog.Debug("archive staged", "bucket", c.bucket, "key", key)
	return code{bucket: c.bucket, key: key}, nil
}

// Invoke runs function synchronously and returns its payload with the decoded log tail.
func (c *Client) Invoke(ctx context.Context, function string, payload []byte) (*InvokeResult, error) {
	out, err := c.apis.Functions.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(function),
		LogType:      lambdatypes.LogTypeTail,
		Payload:      payload,
	})
	if err != nil {
		return nil, c.functionError("invoke", function, err)
	}

	result := &InvokeResult{
		StatusCode:    out.StatusCode,
		FunctionError: aws.ToString(out.FunctionError),
		Payload:       out.Payload,
	}
	if encoded := aws.ToString(out.LogResult); encoded != "" {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode log tail: %w", err)
		}
		if text := strings.TrimRight(string(decoded), "\r\n"); text != "" {
			result.Logs = strings.Split(text, "\n")
		}
	}
	return result, nil
}

// Delete removes function from Lambda.
func (c *Client) Delete(ctx context.Context, function string) error {
	if _, err := c.apis.Functions.DeleteFunction(ctx, &lambda.DeleteFunctionInput{FunctionName: aws.String(function)}); err != nil {
		return c.functionError("delete", function, err)
	}
	slog.Info("function deleted", "function", function)
	return nil
}

func (c *Client) functionError(op, function string, err error) error {
	if IsNotFound(err) {
		return fmt.Errorf("%s %s: %w: %w", op, function, ErrFunctionNotFound, err)
	}
	return fmt.Errorf("%s %s: %w", op, function, err)
}
