package summarize

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	waLog "go.mau.fi/whatsmeow/util/log"

	"wadigest/internal/gateway"
	"wadigest/internal/llm"
	"wadigest/internal/store"
	"wadigest/internal/utils/retry"
)

// minMessages is the minimum number of unseen messages a group needs before
// a scheduled summary is produced. Below it the group is skipped for the
// cycle and retried naturally on the next one.
const minMessages = 5

// Scheduler is the periodic fan-out job producing and broadcasting
// unseen-message summaries per managed group and its community siblings.
type Scheduler struct {
	messages *store.MessageStore
	groups   *store.GroupStore
	gateway  gateway.Client
	llm      llm.Completer
	retryCfg retry.Config
	log      waLog.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(messages *store.MessageStore, groups *store.GroupStore, gw gateway.Client, completer llm.Completer, log waLog.Logger) *Scheduler {
	return &Scheduler{
		messages: messages,
		groups:   groups,
		gateway:  gw,
		llm:      completer,
		retryCfg: retry.Config{
			MaxAttempts: 6,
			InitialWait: time.Second,
			MaxWait:     30 * time.Second,
			Multiplier:  2.0,
			Jitter:      true,
		},
		log: log.Sub("Scheduler"),
	}
}

// Run summarizes every managed group concurrently. Each group unit is
// isolated: its failure is recorded without aborting sibling units, and the
// run returns only after every unit has settled.
func (s *Scheduler) Run(ctx context.Context) error {
	groups, err := s.groups.GetManaged()
	if err != nil {
		return fmt.Errorf("list managed groups: %w", err)
	}

	s.log.Infof("Summarization run starting for %d managed groups", len(groups))

	var wg sync.WaitGroup
	errCh := make(chan error, len(groups))

	for _, g := range groups {
		wg.Add(1)
		go func(g *store.Group) {
			defer wg.Done()
			if err := s.runGroup(ctx, g); err != nil {
				s.log.Errorf("Error summarizing group %s: %v", g.Name, err)
				errCh <- fmt.Errorf("group %s: %w", g.JID, err)
			}
		}(g)
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	s.log.Infof("Summarization run finished: %d groups, %d failures", len(groups), len(errs))
	return errors.Join(errs...)
}

// runGroup produces and fans out one group's summary. Once the group has
// enough unseen messages, its watermark is advanced no matter how the
// summarization or the sends end, so a permanently-failing group never
// causes repeated expensive reattempts over the same messages.
func (s *Scheduler) runGroup(ctx context.Context, g *store.Group) error {
	self, err := s.gateway.SelfJID(ctx)
	if err != nil {
		return fmt.Errorf("resolve own jid: %w", err)
	}

	msgs, err := s.messages.SinceExcluding(g.JID, g.LastSummarySync, self)
	if err != nil {
		return fmt.Errorf("fetch unseen messages: %w", err)
	}
	if len(msgs) < minMessages {
		s.log.Debugf("Not enough messages to summarize in group %s (%d)", g.Name, len(msgs))
		return nil
	}

	defer func() {
		if err := s.groups.AdvanceWatermark(g.JID, time.Now()); err != nil {
			s.log.Errorf("Failed to advance watermark for %s: %v", g.JID, err)
		}
	}()

	summary, err := retry.DoWithConfig(ctx, s.retryCfg, func() (string, error) {
		return s.llm.Complete(ctx, schedulePrompt(g.Name), transcript(msgs))
	})
	if err != nil {
		return fmt.Errorf("summarize %d messages: %w", len(msgs), err)
	}
	s.log.Infof("Generated summary for %s: %d messages", g.Name, len(msgs))

	s.broadcast(ctx, g, summary)
	return nil
}

// broadcast delivers a summary to the origin group and its community
// siblings, honoring each recipient's send_summary_to_self flag. Each send
// is isolated; one recipient's failure never blocks the others.
func (s *Scheduler) broadcast(ctx context.Context, g *store.Group, summary string) {
	if g.SendSummaryToSelf {
		if err := s.gateway.SendMessage(ctx, g.JID, summary, ""); err != nil {
			s.log.Errorf("Failed to send summary to origin group %s: %v", g.Name, err)
		} else {
			s.log.Infof("Sent summary to origin group %s", g.Name)
		}
	}

	siblings, err := s.groups.CommunitySiblings(g)
	if err != nil {
		s.log.Errorf("Failed to resolve community siblings for %s: %v", g.Name, err)
		return
	}

	for _, cg := range siblings {
		if !cg.SendSummaryToSelf {
			continue
		}
		if err := s.gateway.SendMessage(ctx, cg.JID, summary, ""); err != nil {
			s.log.Errorf("Failed to send summary to community group %s: %v", cg.Name, err)
			continue
		}
		s.log.Infof("Sent summary to community group %s", cg.Name)
	}
}

func schedulePrompt(groupName string) string {
	return fmt.Sprintf(`Write a quick summary of what happened in the chat group since the last summary.

- Start by stating this is a quick summary of what happened in "%s" group recently.
- Use a casual conversational writing style.
- Keep it short and sweet.
- Write in the same language as the chat group. You MUST use the same language as the chat group!
- Please do tag users while talking about them (e.g., @972536150150). ONLY answer with the summary, no other text.`,
		groupName)
}
