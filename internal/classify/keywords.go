package classify

import "github.com/applizz/jobmail/internal/core"

// Keyword taxonomy used by the pre-filter and the keyword scoring tier.
// Multi-word phrases are weighted higher than single words when scoring.

var generalKeywords = []string{
	"application", "job", "position", "resume", "cv", "candidate", "opportunity",
	"applied", "hiring", "recruitment", "talent", "career", "employment",
}

var appliedKeywords = []string{
	"application received", "thank you for applying", "application submitted",
	"we have received your application", "successfully applied",
	"application confirmation", "applied", "submission",
}

var inProgressKeywords = []string{
	"under review", "being reviewed", "in progress", "reviewing your application",
	"application status", "next steps", "moving forward", "shortlisted",
}

var interviewKeywords = []string{
	"interview", "meeting", "schedule", "discuss", "conversation", "talk",
	"assessment", "evaluation", "screening", "technical", "coding", "test",
	"interview invitation", "schedule a call", "phone screen", "onsite",
}

var offerKeywords = []string{
	"offer", "congratulations", "pleased to inform", "welcome aboard",
	"join our team", "compensation", "salary", "benefits", "start date",
	"onboarding", "offer letter",
}

var rejectionKeywords = []string{
	"unfortunately", "regret", "not moving forward", "not selected",
	"other candidates", "not proceeding", "decided to pursue", "not a match",
	"not the right fit", "thank you for your interest", "position has been filled",
}

// statusKeywords maps each status to its taxonomy, in declaration order so
// ties resolve deterministically.
var statusKeywords = []struct {
	status   core.Status
	keywords []string
}{
	{core.StatusApplied, appliedKeywords},
	{core.StatusInProgress, inProgressKeywords},
	{core.StatusInterview, interviewKeywords},
	{core.StatusOffer, offerKeywords},
	{core.StatusRejected, rejectionKeywords},
}

// prefilterPool spans the general list and every status taxonomy, so a
// single-category email (a rejection carrying only rejection language, say)
// still reaches the expensive tier.
var prefilterPool = buildPrefilterPool()

func buildPrefilterPool() []string {
	seen := make(map[string]bool)
	var pool []string
	add := func(keywords []string) {
		for _, kw := range keywords {
			if !seen[kw] {
				seen[kw] = true
				pool = append(pool, kw)
			}
		}
	}
	add(generalKeywords)
	for _, sk := range statusKeywords {
		add(sk.keywords)
	}
	return pool
}

// strongPhrases are multi-word phrases that alone pass the pre-filter.
var strongPhrases = []string{
	"thank you for applying",
	"your application has been received",
	"we have received your application",
	"application confirmation",
	"interview invitation",
	"update on your application",
	"your application to",
	"your candidacy",
	"offer letter",
	"pleased to offer you",
}

// marketingIndicators force a non-job classification before any scoring.
var marketingIndicators = []string{
	"unsubscribe",
	"limited time offer",
	"special offer",
	"view in browser",
	"promotional",
	"% off",
	"flash sale",
	"exclusive deal",
	"shop now",
}

// jobPlatformDomains are known job boards and ATS providers. Mail from these
// domains with an "applied to X at Y" subject skips the expensive tier.
var jobPlatformDomains = []string{
	"linkedin.com",
	"indeed.com",
	"lever.co",
	"greenhouse.io",
	"greenhouse-mail.io",
	"workday.com",
	"myworkday.com",
	"glassdoor.com",
	"ziprecruiter.com",
	"smartrecruiters.com",
	"ashbyhq.com",
	"jobvite.com",
}

// genericMailDomains never identify an employer.
var genericMailDomains = []string{
	"gmail", "yahoo", "hotmail", "outlook", "aol", "mail", "icloud",
	"protonmail", "googlemail", "live", "msn",
}

// jobTitleSuffixes terminate a position phrase.
var jobTitleSuffixes = []string{
	"Developer", "Engineer", "Manager", "Designer", "Analyst", "Scientist",
	"Architect", "Consultant", "Specialist", "Administrator", "Lead",
	"Director", "Intern", "Coordinator", "Writer",
}
