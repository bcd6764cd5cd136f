package models

// BrowseResponse is the raw shape of GET /browse.
// Files maps full path -> metadata; Directories lists subdirectory paths.
type BrowseResponse struct {
	Files       map[string]FileMeta `json:"files"`
	Directories []string            `json:"directories"`
	CurrentDir  string              `json:"current_dir"`
}

// FileMeta is the per-file metadata block in a browse response.
type FileMeta struct {
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified"`
}

// GatewayResponse is the generic success/error envelope the gateway wraps
// around mutation responses (upload, rename, delete, create-directory).
type GatewayResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
	Directory string `json:"directory,omitempty"`
}

// NodeHealth is one node's entry in the /admin/dashboard response.
type NodeHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SessionStatus is the gateway's session probe response.
type SessionStatus struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    string `json:"user,omitempty"`
}

// LoggedIn reports whether the probe found an authenticated session.
func (s SessionStatus) LoggedIn() bool {
	return s.User != ""
}

// Admin reports whether the session has admin access.
func (s SessionStatus) Admin() bool {
	return s.Message == "Admin access"
}
