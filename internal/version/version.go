package version

import (
	"encoding/json"
	"fmt"
	"net/http"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// BuildInfo содержит сведения о сборке для /version.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns version information populated via -ldflags.
func Info() (v, c, d string) { return version, commit, date }

func GetVersion() string { return version }

func GetCommit() string { return commit }

func GetDate() string { return date }

// Build возвращает BuildInfo текущего бинаря.
func Build() BuildInfo {
	return BuildInfo{Version: version, Commit: commit, Date: date}
}

func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}

// Handler отдаёт BuildInfo в JSON.
func Handler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Build())
}
