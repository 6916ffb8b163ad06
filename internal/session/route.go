package session

import (
	"fmt"
	"net/url"
	"strings"
)

// RouteKind distinguishes the two logical views.
type RouteKind int

const (
	RouteRoot RouteKind = iota
	RouteChat
)

// Route is the active view. Chat routes carry the paper they are scoped to.
type Route struct {
	Kind  RouteKind
	PMID  string
	Title string
}

// RootRoute is the search view.
func RootRoute() Route {
	return Route{Kind: RouteRoot}
}

// ChatRoute scopes the chat view to one paper.
func ChatRoute(pmid, title string) Route {
	return Route{Kind: RouteChat, PMID: strings.TrimSpace(pmid), Title: title}
}

// String renders "/" or "/chat/<pmid>/<escaped title>".
func (r Route) String() string {
	if r.Kind != RouteChat {
		return "/"
	}
	return "/chat/" + url.PathEscape(r.PMID) + "/" + url.PathEscape(r.Title)
}

// ParseRoute inverts Route.String. The title segment is optional, so
// "/chat/<pmid>" opens a chat without a title.
func ParseRoute(path string) (Route, error) {
	if path == "" || path == "/" {
		return RootRoute(), nil
	}
	rest, ok := strings.CutPrefix(path, "/chat/")
	if !ok {
		return Route{}, fmt.Errorf("unknown route %q", path)
	}
	rawPMID, rawTitle, _ := strings.Cut(rest, "/")
	if rawPMID == "" {
		return Route{}, fmt.Errorf("chat route %q needs a pmid", path)
	}
	pmid, err := url.PathUnescape(rawPMID)
	if err != nil {
		return Route{}, fmt.Errorf("chat route pmid: %w", err)
	}
	title, err := url.PathUnescape(rawTitle)
	if err != nil {
		return Route{}, fmt.Errorf("chat route title: %w", err)
	}
	return ChatRoute(pmid, title), nil
}
