// Package posts is the post service: creation behind the content filter, the
// aggregated feed, deletion with the admin override, and the profile
// operations that share the social document with them.
//
// Every mutation is a whole-document load-modify-save cycle. One mutex per
// Service serialises those cycles; reads hold the read side.
package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/alphabot-ai/ysocial/internal/events"
	"github.com/alphabot-ai/ysocial/internal/metrics"
	"github.com/alphabot-ai/ysocial/internal/model"
	"github.com/alphabot-ai/ysocial/internal/store"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrSelfFollow   = errors.New("cannot follow yourself")
	ErrInvalidRole  = errors.New("invalid role")
)

// errUnchanged aborts an update without saving.
var errUnchanged = errors.New("document unchanged")

type Status int

const (
	Accepted Status = iota + 1
	Rejected
)

func (s Status) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Outcome is the result of CreatePost. Post is set when Accepted, Reason when
// Rejected.
type Outcome struct {
	Status Status
	Post   model.Post
	Reason string
}

type Options struct {
	Strategy      FeedStrategy
	Events        events.Publisher
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	Now           func() time.Time
	PruneOnCreate bool
}

type Service struct {
	store         store.DocumentStore
	strategy      FeedStrategy
	events        events.Publisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
	now           func() time.Time
	pruneOnCreate bool

	mu     sync.RWMutex
	lastID int64
}

func NewService(st store.DocumentStore, opts Options) *Service {
	s := &Service{
		store:         st,
		strategy:      opts.Strategy,
		events:        opts.Events,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		now:           opts.Now,
		pruneOnCreate: opts.PruneOnCreate,
	}
	if s.strategy == nil {
		s.strategy = RankByRecency{Limit: DefaultRecencyLimit}
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) Strategy() FeedStrategy { return s.strategy }

func (s *Service) update(ctx context.Context, fn func(doc *model.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	if err := s.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("save social document: %w", err)
	}
	return nil
}

func (s *Service) view(ctx context.Context, fn func(doc *model.Document) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	return fn(&doc)
}

// CreatePost publishes message for username, or records a rejection notice on
// the profile when the message fails the content filter.
func (s *Service) CreatePost(ctx context.Context, username, message string, hashtags []string) (Outcome, error) {
	tags := []string{}
	if hashtags != nil {
		tags = slices.Clone(hashtags)
	}

	var out Outcome
	err := s.update(ctx, func(doc *model.Document) error {
		p := doc.Profile(username)
		if p == nil {
			return ErrUserNotFound
		}
		now := s.now()
		if reason, ok := CheckContent(message); !ok {
			p.Notifications = append(p.Notifications, model.Notification{
				Message:   rejectionNotice(reason),
				Timestamp: now.Format(model.TimestampLayout),
			})
			out = Outcome{Status: Rejected, Reason: reason}
			return nil
		}
		post := model.Post{
			ID:        s.nextID(now, p),
			Message:   message,
			Hashtags:  tags,
			Timestamp: now.Format(model.TimestampLayout),
		}
		p.Posts = slices.Insert(p.Posts, 0, post)
		out = Outcome{Status: Accepted, Post: post}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	if out.Status == Rejected {
		s.metrics.PostRejected()
		s.logger.Info("post rejected", "username", username, "reason", out.Reason)
		s.publish(ctx, events.SubjectPostRejected, events.PostEvent{
			Username: username,
			Reason:   out.Reason,
			At:       s.now(),
		})
		return out, nil
	}

	s.metrics.PostCreated()
	s.logger.Info("post created", "username", username, "post_id", out.Post.ID)
	s.publish(ctx, events.SubjectPostCreated, events.PostEvent{
		Username: username,
		PostID:   out.Post.ID,
		Hashtags: out.Post.Hashtags,
		At:       s.now(),
	})
	if s.pruneOnCreate {
		if _, err := s.PruneInvalidPosts(ctx); err != nil {
			s.logger.Warn("prune after create failed", "error", err)
		}
	}
	return out, nil
}

// nextID derives a post id from the clock, bumped past both the last id this
// process issued and the profile's newest post. Must hold s.mu.
func (s *Service) nextID(now time.Time, p *model.Profile) int64 {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	if len(p.Posts) > 0 && id <= p.Posts[0].ID {
		id = p.Posts[0].ID + 1
	}
	s.lastID = id
	return id
}

// PruneInvalidPosts drops each profile's newest post while it contains a
// backslash. Posts behind the first clean one are left alone.
func (s *Service) PruneInvalidPosts(ctx context.Context) (int, error) {
	removed := 0
	err := s.update(ctx, func(doc *model.Document) error {
		removed = 0
		for i := range doc.Users {
			p := &doc.Users[i]
			for len(p.Posts) > 0 && hasBackslash(p.Posts[0].Message) {
				p.Posts = p.Posts[1:]
				removed++
			}
		}
		if removed == 0 {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.metrics.PostsPruned(removed)
		s.logger.Info("pruned invalid posts", "removed", removed)
	}
	return removed, nil
}

// GetFeed aggregates every profile's posts and hands them to the configured
// strategy. An empty document yields an empty, non-nil slice.
func (s *Service) GetFeed(ctx context.Context) ([]model.PostView, error) {
	var all []model.PostView
	err := s.view(ctx, func(doc *model.Document) error {
		for _, u := range doc.Users {
			for _, p := range u.Posts {
				all = append(all, model.PostView{Post: p, Username: u.Username})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.FeedRequested(s.strategy.Name())
	if len(all) == 0 {
		return []model.PostView{}, nil
	}
	return s.strategy.Select(all), nil
}

// DeletePost removes every post with id postID from the caller's posts, or
// from every profile when the caller is an Admin. It returns how many posts
// were removed; zero is not an error.
func (s *Service) DeletePost(ctx context.Context, username string, postID int64) (int, error) {
	removed := 0
	err := s.update(ctx, func(doc *model.Document) error {
		removed = 0
		caller := doc.Profile(username)
		if caller == nil {
			return ErrUserNotFound
		}
		if caller.IsAdmin() {
			for i := range doc.Users {
				removed += removePost(&doc.Users[i], postID)
			}
		} else {
			removed = removePost(caller, postID)
		}
		if removed == 0 {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.metrics.PostsDeleted(removed)
		s.logger.Info("post deleted", "username", username, "post_id", postID, "removed", removed)
		s.publish(ctx, events.SubjectPostDeleted, events.PostEvent{
			Username: username,
			PostID:   postID,
			Removed:  removed,
			At:       s.now(),
		})
	}
	return removed, nil
}

func removePost(p *model.Profile, id int64) int {
	before := len(p.Posts)
	kept := make([]model.Post, 0, before)
	for _, post := range p.Posts {
		if post.ID != id {
			kept = append(kept, post)
		}
	}
	p.Posts = kept
	return before - len(kept)
}

// CreateProfile adds the default profile for a freshly registered account. A
// profile already present under the same username is adopted and given the
// account id.
func (s *Service) CreateProfile(ctx context.Context, accountID int64, username string) error {
	return s.update(ctx, func(doc *model.Document) error {
		if p := doc.Profile(username); p != nil {
			if p.ID == accountID {
				return errUnchanged
			}
			s.logger.Warn("adopting existing profile", "username", username, "old_id", p.ID, "new_id", accountID)
			p.ID = accountID
			return nil
		}
		doc.AddProfile(model.NewProfile(accountID, username, s.now()))
		return nil
	})
}

func (s *Service) Profile(ctx context.Context, username string) (model.Profile, error) {
	var out model.Profile
	err := s.view(ctx, func(doc *model.Document) error {
		p := doc.Profile(username)
		if p == nil {
			return ErrUserNotFound
		}
		out = *p
		return nil
	})
	return out, err
}

func (s *Service) Profiles(ctx context.Context) ([]model.Profile, error) {
	var out []model.Profile
	err := s.view(ctx, func(doc *model.Document) error {
		out = doc.Users
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Profile{}
	}
	return out, nil
}

func (s *Service) Notifications(ctx context.Context, username string) ([]model.Notification, error) {
	p, err := s.Profile(ctx, username)
	if err != nil {
		return nil, err
	}
	if p.Notifications == nil {
		return []model.Notification{}, nil
	}
	return p.Notifications, nil
}

// Follow records that username follows target. Following twice is a no-op.
func (s *Service) Follow(ctx context.Context, username, target string) error {
	if username == target {
		return ErrSelfFollow
	}
	return s.update(ctx, func(doc *model.Document) error {
		me, them, err := pair(doc, username, target)
		if err != nil {
			return err
		}
		changed := false
		if !slices.Contains(me.Following, target) {
			me.Following = append(me.Following, target)
			changed = true
		}
		if !slices.Contains(them.Followers, username) {
			them.Followers = append(them.Followers, username)
			changed = true
		}
		if !changed {
			return errUnchanged
		}
		return nil
	})
}

func (s *Service) Unfollow(ctx context.Context, username, target string) error {
	if username == target {
		return ErrSelfFollow
	}
	return s.update(ctx, func(doc *model.Document) error {
		me, them, err := pair(doc, username, target)
		if err != nil {
			return err
		}
		n := len(me.Following) + len(them.Followers)
		me.Following = slices.DeleteFunc(me.Following, func(u string) bool { return u == target })
		them.Followers = slices.DeleteFunc(them.Followers, func(u string) bool { return u == username })
		if len(me.Following)+len(them.Followers) == n {
			return errUnchanged
		}
		return nil
	})
}

func pair(doc *model.Document, username, target string) (*model.Profile, *model.Profile, error) {
	me := doc.Profile(username)
	if me == nil {
		return nil, nil, ErrUserNotFound
	}
	them := doc.Profile(target)
	if them == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUserNotFound, target)
	}
	return me, them, nil
}

func (s *Service) SetRole(ctx context.Context, username string, role model.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	return s.update(ctx, func(doc *model.Document) error {
		p := doc.Profile(username)
		if p == nil {
			return ErrUserNotFound
		}
		if p.Role == role {
			return errUnchanged
		}
		p.Role = role
		s.logger.Info("role changed", "username", username, "role", role)
		return nil
	})
}

func (s *Service) publish(ctx context.Context, subject string, ev events.PostEvent) {
	if err := s.events.Publish(ctx, subject, ev); err != nil {
		s.logger.Warn("publish event failed", "subject", subject, "error", err)
	}
}
