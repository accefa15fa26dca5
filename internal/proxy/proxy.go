// Package proxy implements the authenticated reverse proxy (C7): it
// authenticates a request by per-workspace credential, checks entitlement
// and runtime state, and forwards into the workspace's container on the
// internal network. The upstream target is resolved fresh on every
// request — never cached across requests — so a restarted or rescheduled
// container is picked up immediately.
package proxy

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/http/response"
	"github.com/hostplane/controlplane/internal/lib/sl"
	"github.com/hostplane/controlplane/internal/models"
)

// CredentialHeader is the fixed header carrying the per-workspace
// credential. It is stripped before the request is forwarded upstream and
// must never appear in the proxied request.
const CredentialHeader = "X-Workspace-Credential"

// PathPrefix is the mount point this proxy is registered under; the
// {workspace_id} path segment is removed before the request is forwarded.
const PathPrefix = "/api/proxy/"

// WorkspaceLookup resolves a workspace by its proxy credential.
type WorkspaceLookup interface {
	GetWorkspaceByCredential(ctx context.Context, credential string) (*models.Workspace, error)
}

// EntitlementChecker reports whether a user currently has an active,
// unexpired subscription.
type EntitlementChecker interface {
	IsEntitled(ctx context.Context, userID string) (bool, error)
}

// AddressResolver resolves a running container's address on the internal
// network, evaluated at dispatch time per request.
type AddressResolver interface {
	InternalIP(ctx context.Context, handle string) (string, bool, error)
}

// Proxy implements http.Handler for the /api/proxy/{workspace_id}/{rest}
// route group.
type Proxy struct {
	workspaces  WorkspaceLookup
	entitlement EntitlementChecker
	engine      AddressResolver
	port        int
	log         *slog.Logger
}

// New builds a Proxy.
func New(workspaces WorkspaceLookup, entitlement EntitlementChecker, engine AddressResolver, port int, log *slog.Logger) *Proxy {
	return &Proxy{workspaces: workspaces, entitlement: entitlement, engine: engine, port: port, log: log}
}

// ServeHTTP implements the seven-step algorithm of spec §4.7.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Step 1: extract the credential.
	credential := r.Header.Get(CredentialHeader)
	if credential == "" {
		response.Error(w, r, apperr.New(apperr.AuthRequired, "missing workspace credential"))
		return
	}

	// Step 2: look up the workspace. Only a prefix of the credential is
	// ever logged, matching the proxy's contract that the credential is
	// effectively a secret.
	ws, err := p.workspaces.GetWorkspaceByCredential(ctx, credential)
	if err != nil {
		p.log.Warn("proxy credential rejected", slog.String("credential_prefix", credentialPrefix(credential)))
		response.Error(w, r, apperr.New(apperr.AuthFailed, "invalid workspace credential"))
		return
	}

	// Step 3: entitlement.
	entitled, err := p.entitlement.IsEntitled(ctx, ws.OwnerID)
	if err != nil {
		p.log.Error("entitlement check failed", sl.Err(err), slog.String("workspace_id", ws.ID))
		response.Error(w, r, apperr.Wrap(apperr.Internal, "entitlement check failed", err))
		return
	}
	if !entitled {
		response.Error(w, r, apperr.New(apperr.Unentitled, "subscription is not active"))
		return
	}

	// Step 4: runtime state and engine handle.
	if ws.RuntimeState != models.WorkspaceRunning || ws.EngineHandle == nil {
		response.Error(w, r, apperr.New(apperr.NotRunning, "workspace is not running").WithDetails(ws.RuntimeState))
		return
	}

	// Step 5: resolve the container address, fresh on every request.
	ip, ok, err := p.engine.InternalIP(ctx, *ws.EngineHandle)
	if err != nil {
		p.log.Error("failed to resolve workspace address", sl.Err(err), slog.String("workspace_id", ws.ID))
		response.Error(w, r, apperr.Wrap(apperr.UpstreamUnreachable, "workspace is unreachable", err))
		return
	}
	if !ok {
		response.Error(w, r, apperr.New(apperr.UpstreamUnreachable, "workspace is unreachable"))
		return
	}
	target := &url.URL{Scheme: "http", Host: ip + ":" + strconv.Itoa(p.port)}

	// Step 6: build a fresh reverse proxy for this request only — never
	// held across requests, so target resolution above always wins.
	rp := &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			req.Header.Del(CredentialHeader)
			req.URL.Scheme = target.Scheme
			req.URL.Host = target.Host
			req.Host = target.Host
			req.URL.Path = stripWorkspacePrefix(req.URL.Path, ws.ID)
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			p.log.Warn("upstream connection failed", sl.Err(err), slog.String("workspace_id", ws.ID))
			response.Error(w, r, apperr.Wrap(apperr.UpstreamUnreachable, "upstream connection failed", err))
		},
		Transport: &http.Transport{DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext},
	}
	rp.ServeHTTP(w, r)
}

// stripWorkspacePrefix removes /api/proxy/{workspaceID} from path, per §4.7
// step 6; an empty remainder becomes "/".
func stripWorkspacePrefix(path, workspaceID string) string {
	rest := strings.TrimPrefix(path, PathPrefix+workspaceID)
	if rest == "" {
		return "/"
	}
	return rest
}

func credentialPrefix(credential string) string {
	const n = 8
	if len(credential) <= n {
		return credential
	}
	return credential[:n]
}

