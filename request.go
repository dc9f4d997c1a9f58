package pagelet

import (
	"net/http"
	"net/url"
)

// Request carries the transport-independent view of one inbound request.
// The server adapter builds it from the HTTP layer; tests build it
// directly.
type Request struct {
	// ID identifies the request and its bootstrap for the live update
	// channel. The server adapter fills it with a UUID.
	ID string

	// Method is the HTTP method, upper case.
	Method string

	// Path is the request path, without query string.
	Path string

	// Query holds the parsed query string.
	Query url.Values

	// Header holds the request headers of interest to fragments.
	Header http.Header

	// FragmentID, when set, bypasses path matching and resolves the request
	// to the single fragment with this id (partial refreshes).
	FragmentID string

	// RemoteAddr is the peer address, for logging and guards.
	RemoteAddr string

	// Fields holds accumulated form fields once the body has been parsed.
	Fields url.Values

	// Files holds accumulated upload metadata once the body has been parsed.
	Files []FormFile
}

// FormFile describes one uploaded file accumulated by the form collaborator.
// The content itself stays with the transport layer; fragments that need it
// read it through the upload path in Header/Fields conventions of the host
// application.
type FormFile struct {
	Field    string
	Name     string
	Size     int64
	MIMEType string
}

// FormHook is invoked once per request after the body has been fully
// parsed, with the accumulated fields and files.
type FormHook func(req *Request, fields url.Values, files []FormFile)

// HasForm reports whether the request carried any parsed form data.
func (r *Request) HasForm() bool {
	return len(r.Fields) > 0 || len(r.Files) > 0
}
