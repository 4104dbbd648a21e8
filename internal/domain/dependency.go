package domain

// DependencyRecord is the freshness of one library in one application branch.
type DependencyRecord struct {
	Series   string `json:"series"`
	Version  string `json:"version"`
	Latest   string `json:"latest"`
	Outdated bool   `json:"outdated"`
}

// DependencyTable is the dependency matrix written for the renderer.
type DependencyTable struct {
	Libs   []string                               `json:"libs"`
	Latest map[string]string                      `json:"latest"`
	Apps   map[string]map[string]DependencyRecord `json:"apps"`
}
