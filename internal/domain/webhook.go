package domain

import "strings"

// CollectionForRepo derives the collection name for a repository. Slashes in
// owner/repo names are replaced because they are not valid collection names.
func CollectionForRepo(repoName string) string {
	return strings.ReplaceAll(repoName, "/", "-")
}

// PushEvent is the canonical form every webhook provider payload is
// normalized into before any downstream component sees it. Changed holds
// added plus modified paths; Deleted holds removed paths.
type PushEvent struct {
	RepoName string   `json:"repo_name"`
	Branch   string   `json:"branch"`
	Commit   string   `json:"commit"`
	Changed  []string `json:"changed_files"`
	Deleted  []string `json:"deleted_files"`
}

// Empty reports whether the push touched no files at all.
func (e *PushEvent) Empty() bool {
	return len(e.Changed) == 0 && len(e.Deleted) == 0
}
