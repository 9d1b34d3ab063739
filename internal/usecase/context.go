package usecase

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"advisor/internal/domain"
	"advisor/internal/platform/logger"
)

// ConversationMemory supplies topics and a summary for a session.
type ConversationMemory interface {
	ExtractTopics(ctx context.Context, session *domain.Session) ([]string, error)
	Summarize(ctx context.Context, session *domain.Session) string
}

// Assembly is the assembled context plus what was found while building it.
type Assembly struct {
	Text        string
	Topics      []string
	TopTraining string
	TopProject  string
	// Degraded is set when a step failed and the text was cut short.
	Degraded bool
}

// ContextAssembler builds the information block placed in the system prompt.
type ContextAssembler struct {
	memory        ConversationMemory
	searcher      Searcher
	trainingLimit int
	projectLimit  int
	log           *logger.Logger
}

// NewContextAssembler creates a context assembler.
func NewContextAssembler(memory ConversationMemory, searcher Searcher, trainingLimit, projectLimit int, log *logger.Logger) *ContextAssembler {
	if log == nil {
		log = logger.Nop()
	}
	return &ContextAssembler{
		memory:        memory,
		searcher:      searcher,
		trainingLimit: trainingLimit,
		projectLimit:  projectLimit,
		log:           log,
	}
}

// Assemble returns the context text. It never fails: a failing step is
// logged, the text built so far is kept and the user profile is appended.
func (a *ContextAssembler) Assemble(ctx context.Context, userMessage string, session *domain.Session, profile domain.UserProfile) string {
	return a.Build(ctx, userMessage, session, profile).Text
}

// Build is Assemble with the intermediate results exposed.
func (a *ContextAssembler) Build(ctx context.Context, userMessage string, session *domain.Session, profile domain.UserProfile) Assembly {
	var (
		b   strings.Builder
		out Assembly
	)
	b.WriteString("Available Information:\n\n")

	if err := a.writeRetrieved(ctx, &b, &out, userMessage, session); err != nil {
		out.Degraded = true
		userID := ""
		if session != nil {
			userID = session.UserID
		}
		a.log.Warn("context assembly degraded", "user_id", userID, "error", err)
	}

	writeProfile(&b, profile)
	out.Text = b.String()
	return out
}

func (a *ContextAssembler) writeRetrieved(ctx context.Context, b *strings.Builder, out *Assembly, userMessage string, session *domain.Session) error {
	if session == nil {
		session = &domain.Session{}
	}

	// topics only widen the query; ranking goes ahead on the message alone
	topics, err := a.memory.ExtractTopics(ctx, session)
	if err != nil {
		a.log.Warn("topic extraction failed", "user_id", session.UserID, "error", err)
		topics = nil
	}
	out.Topics = topics

	query := userMessage
	if len(topics) > 0 {
		query = userMessage + " " + strings.Join(topics, " ")
	}

	var trainings, projects []domain.ScoredItem
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trainings, err = a.searcher.Search(gctx, domain.KindTraining, query, a.trainingLimit)
		if err != nil {
			return fmt.Errorf("searching trainings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		projects, err = a.searcher.Search(gctx, domain.KindProject, query, a.projectLimit)
		if err != nil {
			return fmt.Errorf("searching projects: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if len(topics) > 0 {
		fmt.Fprintf(b, "CONVERSATION CONTEXT: Currently discussing %s\n\n", strings.Join(topics, ", "))
	}

	b.WriteString(a.memory.Summarize(ctx, session))

	if len(trainings) > 0 {
		out.TopTraining = trainings[0].Item.Title
		b.WriteString("TRAININGS:\n")
		for _, s := range trainings {
			t := s.Item
			fmt.Fprintf(b, "- %s: %s (Duration: %s)\n", t.Title, t.Description, t.Duration)
			fmt.Fprintf(b, "  Prerequisites: %s\n", joinOrNone(t.Prerequisites))
			fmt.Fprintf(b, "  Audience: %s\n\n", strings.Join(t.Audience, ", "))
		}
	}

	if len(projects) > 0 {
		out.TopProject = projects[0].Item.Title
		b.WriteString("PROJECTS:\n")
		for _, s := range projects {
			p := s.Item
			fmt.Fprintf(b, "- %s: %s\n", p.Title, p.Description)
			fmt.Fprintf(b, "  Technologies: %s\n\n", strings.Join(p.Technologies, ", "))
		}
	}

	return nil
}

func writeProfile(b *strings.Builder, profile domain.UserProfile) {
	b.WriteString("USER PROFILE:\n")
	fmt.Fprintf(b, "- Name: %s, Role: %s in %s\n", profile.Name, profile.Title, profile.Department)
	fmt.Fprintf(b, "- Completed Trainings: %s\n", joinOrNone(profile.CompletedTrainings))
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "None"
	}
	return strings.Join(values, ", ")
}
