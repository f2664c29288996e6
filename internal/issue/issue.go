// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	MetadataNotFoundId Id = iota + 1
	MetadataInvalidId
	FunctionExistsId
	UnsupportedRuntimeId
	BuildFailedId
	ArchiveFailedId
	AwsCredentialsId
	RemoteFunctionNotFoundId
	ConfigLoadFailedId
	PermissionDeniedId
	HostNotSupportedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // external references shown under "See also"
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the issue with the named glamour style ("dark", "light", "notty").
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	metadataNotFoundIssue = &Issue{
		id: MetadataNotFoundId,
		mdMsg: `
# No metadata.json found!

Every lambkin command except ` + "`create`" + ` runs inside a function directory,
identified by its ` + "`metadata.json`" + ` file.

## Things you can try:
- Change into the function directory first:
~~~
$ cd my-function
$ lambkin build
~~~

- Or create a new function:
~~~
$ lambkin create my-function --runtime python3.12
~~~`,
	}

	metadataInvalidIssue = &Issue{
		id: MetadataInvalidId,
		mdMsg: `
# Invalid metadata.json!

The function metadata could not be parsed or failed validation.

## Common issues:
- Invalid JSON syntax (trailing commas, missing quotes)
- ` + "`function`" + ` must be 1-64 letters, digits, hyphens or underscores
- ` + "`timeout`" + ` must be between 1 and 900 seconds
- ` + "`memory`" + ` must be between 128 and 10240 MB

## Example:
~~~json
{
    "function": "my-function",
    "runtime": "python3.12",
    "timeout": 30
}
~~~`,
	}

	functionExistsIssue = &Issue{
		id: FunctionExistsId,
		mdMsg: `
# Function directory already exists!

` + "`lambkin create`" + ` never overwrites an existing directory or entry point.

## Things you can try:
- Pick a different function name
- Remove or rename the existing directory
- Use ` + "`--directory`" + ` to create the function somewhere else`,
	}

	unsupportedRuntimeIssue = &Issue{
		id: UnsupportedRuntimeId,
		mdMsg: `
# Unsupported runtime!

lambkin supports Python and Node.js Lambda runtimes.

## Things you can try:
- Use one of: python3.9, python3.10, python3.11, python3.12, python3.13,
  nodejs18.x, nodejs20.x, nodejs22.x
- Or the short forms ` + "`python`" + ` and ` + "`nodejs`" + ` for the defaults
- Check ` + "`defaults.runtime`" + ` in your lambkin config`,
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# Build failed!

The dependency build step exited with a non-zero status.

## Things you can try:
- Python: check ` + "`requirements.txt`" + ` and recreate the virtualenv:
~~~
$ rm -rf venv
$ lambkin build
~~~

- Node.js: run ` + "`make`" + ` yourself to see the full output
- Re-run with ` + "`--verbose`" + ` for the commands being executed`,
	}

	archiveFailedIssue = &Issue{
		id: ArchiveFailedId,
		mdMsg: `
# Could not write the deployment archive!

## Things you can try:
- Check that the destination directory exists and is writable
- Check free disk space
- Point ` + "`package.temp_dir`" + ` in your config at a writable directory
- Write the archive elsewhere:
~~~
$ lambkin package --output ./dist/function.zip
~~~`,
	}

	awsCredentialsIssue = &Issue{
		id: AwsCredentialsId,
		mdMsg: `
# AWS credentials not available!

lambkin talks to Lambda, EventBridge, STS and S3 using the standard AWS
credential chain.

## Things you can try:
- Configure a profile:
~~~
$ aws configure --profile lambkin
$ lambkin --config ~/.config/lambkin/config.cue publish
~~~

- Or export ` + "`AWS_ACCESS_KEY_ID`" + ` / ` + "`AWS_SECRET_ACCESS_KEY`" + `
- Set ` + "`aws.profile`" + ` and ` + "`aws.region`" + ` in your lambkin config`,
		docLinks: []HttpLink{"https://docs.aws.amazon.com/sdkref/latest/guide/standardized-credentials.html"},
	}

	remoteFunctionNotFoundIssue = &Issue{
		id: RemoteFunctionNotFoundId,
		mdMsg: `
# Function is not published!

AWS Lambda has no function with this name in the configured account and region.

## Things you can try:
- List what is deployed:
~~~
$ lambkin list-published
~~~

- Publish the function first:
~~~
$ lambkin publish
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Show where lambkin looks for its config:
~~~
$ lambkin config path
~~~

- Validate the CUE syntax, or regenerate the defaults:
~~~
$ lambkin config init --force
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

## Common causes:
- The function directory contains files you cannot read
- The archive destination is not writable
- Your IAM identity lacks lambda:*, events:* or iam:PassRole permissions

## Things you can try:
- Check file and directory permissions
- Check the IAM policy attached to your AWS identity`,
	}

	hostNotSupportedIssue = &Issue{
		id: HostNotSupportedId,
		mdMsg: `
# Host not supported!

lambkin relies on POSIX virtualenv layouts and does not run on Windows.

## Things you can try:
- Run lambkin inside WSL
- Run lambkin from a Linux container`,
	}

	issues = map[Id]*Issue{
		metadataNotFoundIssue.Id():       metadataNotFoundIssue,
		metadataInvalidIssue.Id():        metadataInvalidIssue,
		functionExistsIssue.Id():         functionExistsIssue,
		unsupportedRuntimeIssue.Id():     unsupportedRuntimeIssue,
		buildFailedIssue.Id():            buildFailedIssue,
		archiveFailedIssue.Id():          archiveFailedIssue,
		awsCredentialsIssue.Id():         awsCredentialsIssue,
		remoteFunctionNotFoundIssue.Id(): remoteFunctionNotFoundIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
		permissionDeniedIssue.Id():       permissionDeniedIssue,
		hostNotSupportedIssue.Id():       hostNotSupportedIssue,
	}
)

// Values returns every catalogued issue ordered by Id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
