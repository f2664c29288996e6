// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the lambkin command line.
//
// Every subcommand is built by a newXCommand(app) constructor and reaches
// configuration, AWS and the build tooling only through the App composition
// root, so tests can swap any of them for fakes.
package cmd
