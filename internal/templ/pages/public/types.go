package public

import (
	"github.com/DukeRupert/authflow/internal/domain"
	"github.com/DukeRupert/authflow/internal/templ/shared"
)

// PageHome is the template name of the home page.
const PageHome = "public/home"

// HomePageData contains data for the home page
type HomePageData struct {
	CurrentPath string
	CSRFToken   string
	Flash       *shared.Flash
	Theme       string
	Language    string

	// Identity is the most recent sign-in of this browser session, nil if
	// nobody has signed in.
	Identity *domain.Identity

	// Original is the identity the session first signed in as.
	Original *domain.Identity

	// History lists every identity of the session, oldest first.
	History []domain.Identity

	Themes    []string
	Languages []LanguageOption
}

// LanguageOption is one entry of the language picker.
type LanguageOption struct {
	Tag  string
	Name string
}
