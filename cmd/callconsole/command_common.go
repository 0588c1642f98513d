package main

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"text/tabwriter"
	"time"

	"callconsole/internal/types"
)

const version = "dev"

func printCalls(output io.Writer, calls []*types.CallRecord) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "CALL\tSTATUS\tAGENT\tPRIORITY\tCREATED\tENDED")
	for _, call := range calls {
		ended := "-"
		if call.EndedAt != nil {
			ended = call.EndedAt.Local().Format(time.DateTime)
			if call.EndReason != "" {
				ended += " (" + call.EndReason + ")"
			}
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			call.CallID, call.Status, call.AgentID, orDash(call.Priority), call.CreatedAt.Local().Format(time.DateTime), ended)
	}
	_ = writer.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		var revision, modified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				revision = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
		if revision != "" {
			if modified == "true" {
				return revision + "-dirty"
			}
			return revision
		}
	}

	exe, err := os.Executable()
	if err == nil {
		file, err := os.Open(exe)
		if err == nil {
			defer file.Close()
			hasher := sha256.New()
			if _, err := io.Copy(hasher, file); err == nil {
				sum := hasher.Sum(nil)
				return fmt.Sprintf("bin-%x", sum[:6])
			}
		}
	}
	return version
}
