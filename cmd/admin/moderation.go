package main

import (
	"context"
	"fmt"
	"io"

	"animeverse/internal/notifications"
	"animeverse/internal/repository"
	"animeverse/internal/service"

	"gorm.io/gorm"
)

// inboxLimit caps how many unread messages the inbox command prints.
const inboxLimit = 50

// moderator runs the comment, inbox and newsletter commands.
type moderator struct {
	comments    *service.CommentService
	contacts    *service.ContactService
	newsletters *service.NewsletterService
	out         io.Writer
}

func newModerator(db *gorm.DB, notifier *notifications.Notifier, out io.Writer) *moderator {
	return &moderator{
		comments:    service.NewCommentService(repository.NewCommentRepository(db), repository.NewPostRepository(db), notifier),
		contacts:    service.NewContactService(repository.NewContactRepository(db), notifier),
		newsletters: service.NewNewsletterService(repository.NewNewsletterRepository(db), notifier),
		out:         out,
	}
}

func (m *moderator) setApproved(ctx context.Context, id uint, approved bool) error {
	comment, err := m.comments.SetApproved(ctx, id, approved)
	if err != nil {
		return fmt.Errorf("update comment %d: %w", id, err)
	}
	state := "hidden"
	if comment.IsApproved {
		state = "visible"
	}
	fmt.Fprintf(m.out, "✅ Comment %d by %s is now %s\n", comment.ID, comment.Name, state)
	return nil
}

func (m *moderator) deleteComment(ctx context.Context, id uint) error {
	if err := m.comments.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	fmt.Fprintf(m.out, "✅ Deleted comment %d\n", id)
	return nil
}

func (m *moderator) inbox(ctx context.Context) error {
	unread, err := m.contacts.ListUnread(ctx, inboxLimit)
	if err != nil {
		return fmt.Errorf("list contact messages: %w", err)
	}
	if len(unread) == 0 {
		fmt.Fprintln(m.out, "No unread contact messages")
		return nil
	}
	for _, msg := range unread {
		fmt.Fprintf(m.out, "#%d\t%s\t%s <%s>\t%s\n", msg.ID, msg.CreatedAt.Format("2006-01-02"), msg.Name, msg.Email, msg.Subject)
	}
	return nil
}

func (m *moderator) markRead(ctx context.Context, id uint) error {
	if err := m.contacts.MarkRead(ctx, id, true); err != nil {
		return fmt.Errorf("mark contact %d read: %w", id, err)
	}
	fmt.Fprintf(m.out, "✅ Contact message %d marked read\n", id)
	return nil
}

func (m *moderator) subscribers(ctx context.Context) error {
	subs, err := m.newsletters.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}
	for _, sub := range subs {
		fmt.Fprintf(m.out, "%s\t%s\n", sub.Email, sub.SubscribedAt.Format("2006-01-02"))
	}
	return nil
}

func (m *moderator) unsubscribe(ctx context.Context, id uint) error {
	if err := m.newsletters.SetActive(ctx, id, false); err != nil {
		return fmt.Errorf("deactivate subscriber %d: %w", id, err)
	}
	fmt.Fprintf(m.out, "✅ Subscriber %d deactivated\n", id)
	return nil
}
