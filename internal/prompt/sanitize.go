package prompt

import (
	"regexp"
	"strings"
	"unicode"

	"grantdraft/internal/proposal"
)

// DefaultFieldLimit caps a single free-text field, in runes.
const DefaultFieldLimit = 2000

var (
	reLineBreaks = regexp.MustCompile(`[\r\n\t]+`)
	reSpaces     = regexp.MustCompile(` {2,}`)
	// Leading markdown structure that could open a fake section inside a
	// one-line field value: headings, rules, quotes.
	reLeadingMarkup = regexp.MustCompile(`^(?:#{1,6}\s*|-{3,}\s*|>\s*)+`)
)

// Sanitize returns copies of agency and project with every free-text field
// flattened to a single line, stripped of control characters and leading
// markdown structure, and capped at limit runes (limit <= 0 uses
// DefaultFieldLimit).
func Sanitize(agency proposal.AgencyInfo, project proposal.ProjectInfo, limit int) (proposal.AgencyInfo, proposal.ProjectInfo) {
	if limit <= 0 {
		limit = DefaultFieldLimit
	}
	clean := func(s string) string { return SanitizeField(s, limit) }

	agency.Name = clean(agency.Name)
	agency.Representative = clean(agency.Representative)
	agency.Address = clean(agency.Address)
	agency.ContactPerson = clean(agency.ContactPerson)
	agency.Phone = clean(agency.Phone)
	agency.Email = clean(agency.Email)
	agency.FoundingDate = clean(agency.FoundingDate)
	agency.MainBusiness = clean(agency.MainBusiness)

	project.Title = clean(project.Title)
	project.Keywords = clean(project.Keywords)
	project.Target = clean(project.Target)
	project.ParticipantCount = clean(project.ParticipantCount)
	project.Location = clean(project.Location)
	project.Budget = clean(project.Budget)
	project.ProjectPeriod = clean(project.ProjectPeriod)
	return agency, project
}

// SanitizeField normalizes one value. Whitespace-only input becomes empty.
func SanitizeField(s string, limit int) string {
	if s == "" {
		return ""
	}
	s = reLineBreaks.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = reSpaces.ReplaceAllString(strings.TrimSpace(s), " ")
	s = strings.TrimSpace(reLeadingMarkup.ReplaceAllString(s, ""))
	if limit > 0 {
		if r := []rune(s); len(r) > limit {
			s = strings.TrimSpace(string(r[:limit]))
		}
	}
	return s
}
