package domain

import "context"

// ServerPage is one page of registry server summaries.
type ServerPage struct {
	TotalCount     int
	PageNumber     int
	PagesAvailable int
	Servers        []ServerSummary
}

// Registry lists and resolves MCP servers registered under a namespace.
type Registry interface {
	ListServers(ctx context.Context, namespace string, pageNo, pageSize int) (ServerPage, error)
	GetServerDetail(ctx context.Context, namespace, name, version string) (ServerRecord, error)
}

// RegistryFactory creates registry clients for an address and credentials.
type RegistryFactory interface {
	Registry(address string, creds Credentials) (Registry, error)
}

// BackendSession is an initialized client session against one backend server.
type BackendSession interface {
	ListTools(ctx context.Context) ([]ToolRecord, error)
	CallTool(ctx context.Context, name string, arguments map[string]any) (CallResult, error)
	Close() error
}

// Dialer opens and initializes a backend session at a URL.
type Dialer interface {
	Dial(ctx context.Context, url string) (BackendSession, error)
}

// BackendDialer picks the dialer matching a protocol tag.
type BackendDialer interface {
	Dial(ctx context.Context, protocol ProtocolTag, url string) (BackendSession, error)
}

// CatalogLister produces the aggregated server list for a query.
type CatalogLister interface {
	List(ctx context.Context, query CatalogQuery) ([]ServerRecord, error)
}

// MailboxStore holds at most one pending message per session.
// Put overwrites any unread message and reports whether it did.
// Take reads and deletes in one step. Sweep discards the slots of the given sessions.
type MailboxStore interface {
	Put(ctx context.Context, sessionID string, message []byte) (bool, error)
	Take(ctx context.Context, sessionID string) ([]byte, bool, error)
	Sweep(ctx context.Context, sessionIDs ...string) error
	Close() error
}

// ToolRouter proxies one tool call to the backend named in a catalog snapshot.
type ToolRouter interface {
	Call(ctx context.Context, servers []ServerRecord, serverName, toolName string, arguments map[string]any) CallOutcome
}

// CatalogSource returns the current aggregated server list.
type CatalogSource interface {
	Servers(ctx context.Context) ([]ServerRecord, error)
}
