// cmd/preflight/main.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	creds := strings.TrimSpace(os.Getenv("CREDENTIALS_FILE"))
	if creds == "" {
		creds = "serviceAccountKey.json"
	}
	raw, err := os.ReadFile(creds)
	if err != nil {
		fail("cannot read credentials file " + creds + " (set CREDENTIALS_FILE).")
	}
	var key struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(raw, &key); err != nil || key.ProjectID == "" {
		fail(creds + " is not a service-account key (no project_id).")
	}
	ok("credentials: project " + key.ProjectID)

	if strings.TrimSpace(os.Getenv("FCM_SERVER_KEY")) == "" {
		fail("FCM_SERVER_KEY is empty (every send will be rejected).")
	}
	ok("FCM_SERVER_KEY present")

	if strings.TrimSpace(os.Getenv("DATABASE_URL")) == "" {
		warn("DATABASE_URL empty — positions resolve from an empty in-memory store; no alert will fire.")
	} else {
		ok("DATABASE_URL present")
	}

	probeUser := strings.TrimSpace(os.Getenv("PROBE_USER_ID"))
	probeAlarm := strings.TrimSpace(os.Getenv("PROBE_ALARM_ID"))
	switch {
	case probeUser != "" && probeAlarm != "":
		ok("diagnostic probe configured: " + probeUser + "/" + probeAlarm)
	case probeUser == "" && probeAlarm == "":
		warn("no diagnostic probe configured — a misconfigured store is only caught mid-scan.")
	default:
		warn("only one of PROBE_USER_ID / PROBE_ALARM_ID set; the probe will be skipped.")
	}

	ok("preflight passed")
}
