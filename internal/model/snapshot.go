package model

import "time"

type SessionSnapshot struct {
	WatchDir   string     `json:"watch_dir"`
	AuthMethod string     `json:"auth_method"`
	Recursive  bool       `json:"recursive"`
	Encrypt    bool       `json:"encrypt"`
	Running    bool       `json:"running"`
	StartedAt  time.Time  `json:"started_at"`
	Queued     int        `json:"queued"`
	Uploaded   int        `json:"uploaded"`
	Failed     int        `json:"failed"`
	Abandoned  int        `json:"abandoned"`
	Retries    int        `json:"retries"`
	LastUpload *time.Time `json:"last_upload"`
}
