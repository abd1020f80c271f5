package web

type cookieView struct {
	Key      string // selection key
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite string
	Expires  string // "" for session cookies
	Expired  bool
	Selected bool
}

type dashboardView struct {
	Cookies       []cookieView
	DomainOptions []string
	Search        string
	Domain        string
	ExpiredOnly   bool
	SortField     string
	SortFields    []string
	Descending    bool
	Total         int
}

type storageEntryView struct {
	Key   string
	Value string
}

type storageView struct {
	Area    string
	Entries []storageEntryView
	Error   string
}
