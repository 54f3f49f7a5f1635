package model

import "time"

// TimestampLayout is the wire format for post, notification and join times.
const TimestampLayout = "2006-01-02 15:04:05"

type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account is a row of the identity store.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type AccountKey struct {
	ID        int64
	AccountID int64
	Alg       string
	PublicKey string
	CreatedAt time.Time
	RevokedAt *time.Time
}

type Challenge struct {
	Challenge string
	Alg       string
	ExpiresAt time.Time
}

type Post struct {
	ID        int64    `json:"id" bson:"id"`
	Message   string   `json:"message" bson:"message"`
	Hashtags  []string `json:"hashtags" bson:"hashtags"`
	Timestamp string   `json:"timestamp" bson:"timestamp"`
}

// PostView is a post tagged with the username of the profile that owns it.
type PostView struct {
	Post
	Username string `json:"username" bson:"username"`
}

type Notification struct {
	Message   string `json:"message" bson:"message"`
	Timestamp string `json:"timestamp" bson:"timestamp"`
}

type Profile struct {
	ID            int64          `json:"id" bson:"id"`
	Username      string         `json:"username" bson:"username"`
	Role          Role           `json:"role,omitempty" bson:"role,omitempty"`
	JoinedAt      string         `json:"user-made,omitempty" bson:"user-made,omitempty"`
	Posts         []Post         `json:"posts" bson:"posts"`
	Following     []string       `json:"following" bson:"following"`
	Followers     []string       `json:"followers" bson:"followers"`
	Notifications []Notification `json:"notifications,omitempty" bson:"notifications,omitempty"`
}

// IsAdmin reports whether the profile carries the Admin role. A missing role
// means User.
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// NewProfile returns a profile with the default role and empty collections.
func NewProfile(id int64, username string, joined time.Time) Profile {
	return Profile{
		ID:        id,
		Username:  username,
		Role:      RoleUser,
		JoinedAt:  joined.Format(TimestampLayout),
		Posts:     []Post{},
		Following: []string{},
		Followers: []string{},
	}
}

// Document is the social document: every profile, its posts and its edges.
// Lookups by username go through an index rebuilt lazily after loads.
type Document struct {
	Users []Profile `json:"users" bson:"users"`

	index map[string]int
}

func NewDocument() Document {
	return Document{Users: []Profile{}}
}

// Profile returns the profile for username, or nil.
func (d *Document) Profile(username string) *Profile {
	if d.index == nil || len(d.index) != len(d.Users) {
		d.reindex()
	}
	i, ok := d.index[username]
	if !ok || i >= len(d.Users) || d.Users[i].Username != username {
		d.reindex()
		if i, ok = d.index[username]; !ok {
			return nil
		}
	}
	return &d.Users[i]
}

// AddProfile appends p. It reports false when the username is already taken.
func (d *Document) AddProfile(p Profile) bool {
	if d.Profile(p.Username) != nil {
		return false
	}
	d.Users = append(d.Users, p)
	d.index[p.Username] = len(d.Users) - 1
	return true
}

// Normalize replaces missing collections with empty ones so a loaded
// document encodes back with [] rather than null.
func (d *Document) Normalize() {
	if d.Users == nil {
		d.Users = []Profile{}
	}
	for i := range d.Users {
		p := &d.Users[i]
		if p.Posts == nil {
			p.Posts = []Post{}
		}
		if p.Following == nil {
			p.Following = []string{}
		}
		if p.Followers == nil {
			p.Followers = []string{}
		}
		for j := range p.Posts {
			if p.Posts[j].Hashtags == nil {
				p.Posts[j].Hashtags = []string{}
			}
		}
	}
}

func (d *Document) reindex() {
	d.index = make(map[string]int, len(d.Users))
	for i := range d.Users {
		if _, dup := d.index[d.Users[i].Username]; !dup {
			d.index[d.Users[i].Username] = i
		}
	}
}

// Clone returns a deep copy so callers can mutate without touching shared
// state held by a cache or a previous load.
func (d Document) Clone() Document {
	out := Document{Users: make([]Profile, len(d.Users))}
	for i, p := range d.Users {
		cp := p
		cp.Posts = clonePosts(p.Posts)
		cp.Following = cloneStrings(p.Following)
		cp.Followers = cloneStrings(p.Followers)
		if p.Notifications != nil {
			cp.Notifications = append([]Notification(nil), p.Notifications...)
		}
		out.Users[i] = cp
	}
	return out
}

func clonePosts(in []Post) []Post {
	if in == nil {
		return nil
	}
	out := make([]Post, len(in))
	for i, p := range in {
		p.Hashtags = cloneStrings(p.Hashtags)
		out[i] = p
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}
