// Package rbac maps team roles to console permissions.
package rbac

import "sort"

type Role string
type Permission string

const (
	RoleAdmin            Role = "admin"
	RoleEditor           Role = "editor"
	RoleViewer           Role = "viewer"
	RoleMessageResponder Role = "message_responder"
)

const (
	ManageTeam      Permission = "manage_team"
	ManageArticles  Permission = "manage_articles"
	ManageSettings  Permission = "manage_settings"
	ViewAnalytics   Permission = "view_analytics"
	ViewArticles    Permission = "view_articles"
	ViewMessages    Permission = "view_messages"
	RespondMessages Permission = "respond_messages"
	DeleteMessages  Permission = "delete_messages"
)

// Theme customization, domain settings and uploads fall under ManageSettings.
var grants = map[Role][]Permission{
	RoleAdmin:            {ManageTeam, ManageArticles, ManageSettings, ViewAnalytics, RespondMessages, DeleteMessages},
	RoleEditor:           {ManageArticles, ViewAnalytics, RespondMessages},
	RoleViewer:           {ViewArticles, ViewAnalytics},
	RoleMessageResponder: {ViewMessages, RespondMessages},
}

var descriptions = map[Role][2]string{
	RoleAdmin:            {"Administrator", "Full access to all features and settings"},
	RoleEditor:           {"Editor", "Can manage articles and respond to messages"},
	RoleViewer:           {"Viewer", "Read-only access to articles and analytics"},
	RoleMessageResponder: {"Message Responder", "Can view and respond to support messages"},
}

// implied lists permissions that come with another one.
var implied = map[Permission][]Permission{
	ManageArticles:  {ViewArticles},
	RespondMessages: {ViewMessages},
}

func Can(role Role, p Permission) bool {
	for _, granted := range grants[role] {
		if granted == p {
			return true
		}
		for _, sub := range implied[granted] {
			if sub == p {
				return true
			}
		}
	}
	return false
}

// Permissions returns the explicit grants of role, sorted.
func Permissions(role Role) []Permission {
	out := append([]Permission(nil), grants[role]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type RoleInfo struct {
	Role        Role         `json:"role"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
}

// Roles describes every role, admin first.
func Roles() []RoleInfo {
	order := []Role{RoleAdmin, RoleEditor, RoleViewer, RoleMessageResponder}
	out := make([]RoleInfo, 0, len(order))
	for _, r := range order {
		d := descriptions[r]
		out = append(out, RoleInfo{Role: r, Name: d[0], Description: d[1], Permissions: Permissions(r)})
	}
	return out
}

func Valid(role string) bool {
	_, ok := grants[Role(role)]
	return ok
}

// Normalize maps unknown roles to viewer.
func Normalize(role string) Role {
	if Valid(role) {
		return Role(role)
	}
	return RoleViewer
}
