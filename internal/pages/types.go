package pages

import "encoding/json"

// Envelope is the shared wrapper for every Pages API response.
// Code 0 denotes success; Data holds the action-specific payload.
type Envelope struct {
	Code      int             `json:"Code"`
	Data      json.RawMessage `json:"Data"`
	Message   string          `json:"Message"`
	RequestID string          `json:"RequestId"`
}

// Project lifecycle status values.
const (
	ProjectStatusProcess = "Process"
	ProjectStatusNormal  = "Normal"
)

// Deployment status values. Process is the in-flight marker; anything else
// is terminal.
const (
	DeploymentStatusProcess = "Process"
	DeploymentStatusSuccess = "Success"
)

// DomainStatusPass marks a custom domain whose validation completed.
const DomainStatusPass = "Pass"

// Deployment distribution types.
const (
	DistTypeZip    = "Zip"
	DistTypeFolder = "Folder"
)

// Deployment environments.
const (
	EnvProduction = "Production"
	EnvPreview    = "Preview"
)

// CustomDomain is a user-bound domain on a project, with its own
// validation status.
type CustomDomain struct {
	Domain string `json:"Domain"`
	Status string `json:"Status"`
}

// Project is a remote Pages project.
type Project struct {
	ProjectID     string         `json:"ProjectId"`
	Name          string         `json:"Name"`
	Status        string         `json:"Status"`
	PresetDomain  string         `json:"PresetDomain"`
	CustomDomains []CustomDomain `json:"CustomDomains,omitempty"`
}

// Deployment is a remote deployment record linked to one project. Only its
// Status advances after creation, and only on the remote side.
type Deployment struct {
	DeploymentID string `json:"DeploymentId"`
	ProjectID    string `json:"ProjectId"`
	DistType     string `json:"DistType"`
	Environment  string `json:"Environment"`
	Status       string `json:"Status"`
	PreviewURL   string `json:"PreviewUrl,omitempty"`
}

// TempCredentials are short-lived object storage credentials scoped to one
// remote path prefix. Never persisted; valid for one run's upload phase.
type TempCredentials struct {
	AccessKeyID     string `json:"TmpSecretId"`
	SecretAccessKey string `json:"TmpSecretKey"`
	SecurityToken   string `json:"SessionToken"`
	ExpiredTime     int64  `json:"ExpiredTime"`
	Bucket          string `json:"Bucket"`
	Region          string `json:"Region"`
	Prefix          string `json:"Prefix"`
}

// EncipherToken is a short-lived token gating a preview domain.
type EncipherToken struct {
	Token      string `json:"Token"`
	CreateTime int64  `json:"CreateTime"`
}
