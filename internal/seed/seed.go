// Package seed 从 YAML 文件批量导入演示数据，全部经过服务层。
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/pkg/logger"
)

type Fixture struct {
	Users    []UserFixture    `yaml:"users"`
	Messages []MessageFixture `yaml:"messages"`
	Follows  []FollowFixture  `yaml:"follows"`
	Likes    []LikeFixture    `yaml:"likes"`
}

type UserFixture struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	ImageURL string `yaml:"image_url"`
	Bio      string `yaml:"bio"`
	Location string `yaml:"location"`
}

// MessageFixture Key 供 likes 引用，可省略
type MessageFixture struct {
	Key    string `yaml:"key"`
	Author string `yaml:"author"`
	Text   string `yaml:"text"`
}

type FollowFixture struct {
	Follower string `yaml:"follower"`
	Followee string `yaml:"followee"`
}

type LikeFixture struct {
	User    string `yaml:"user"`
	Message string `yaml:"message"`
}

type Result struct {
	Users    int
	Messages int
	Follows  int
	Likes    int
}

// Parse 解析并做引用检查
func Parse(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func ParseFile(path string) (*Fixture, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(fh)
}

func (f *Fixture) validate() error {
	users := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		if u.Username == "" {
			return errors.New("fixture: user without username")
		}
		if users[u.Username] {
			return fmt.Errorf("fixture: duplicate user %q", u.Username)
		}
		users[u.Username] = true
	}
	keys := make(map[string]bool)
	for _, m := range f.Messages {
		if !users[m.Author] {
			return fmt.Errorf("fixture: message author %q not declared", m.Author)
		}
		if m.Key == "" {
			continue
		}
		if keys[m.Key] {
			return fmt.Errorf("fixture: duplicate message key %q", m.Key)
		}
		keys[m.Key] = true
	}
	for _, fl := range f.Follows {
		if !users[fl.Follower] || !users[fl.Followee] {
			return fmt.Errorf("fixture: follow %s -> %s references unknown user", fl.Follower, fl.Followee)
		}
	}
	for _, l := range f.Likes {
		if !users[l.User] {
			return fmt.Errorf("fixture: like by unknown user %q", l.User)
		}
		if !keys[l.Message] {
			return fmt.Errorf("fixture: like references unknown message %q", l.Message)
		}
	}
	return nil
}

type Seeder struct {
	users         service.UserService
	relationships service.RelationshipService
	messages      service.MessageService
}

func NewSeeder(users service.UserService, relationships service.RelationshipService, messages service.MessageService) *Seeder {
	return &Seeder{users: users, relationships: relationships, messages: messages}
}

// Apply 按 users、messages、follows、likes 的顺序写入。已存在的用户直接复用。
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (Result, error) {
	var res Result
	ids := make(map[string]string, len(f.Users))
	for _, uf := range f.Users {
		u, created, err := s.ensureUser(ctx, uf)
		if err != nil {
			return res, fmt.Errorf("seed user %s: %w", uf.Username, err)
		}
		ids[uf.Username] = u.ID
		if created {
			res.Users++
		}
	}

	messageIDs := make(map[string]string)
	for _, mf := range f.Messages {
		m, err := s.messages.Create(ctx, ids[mf.Author], mf.Text)
		if err != nil {
			return res, fmt.Errorf("seed message by %s: %w", mf.Author, err)
		}
		if mf.Key != "" {
			messageIDs[mf.Key] = m.ID
		}
		res.Messages++
	}

	for _, fl := range f.Follows {
		if err := s.relationships.Follow(ctx, ids[fl.Follower], ids[fl.Followee]); err != nil {
			return res, fmt.Errorf("seed follow %s -> %s: %w", fl.Follower, fl.Followee, err)
		}
		res.Follows++
	}

	for _, l := range f.Likes {
		liked, err := s.messages.ToggleLike(ctx, ids[l.User], messageIDs[l.Message])
		if err != nil {
			return res, fmt.Errorf("seed like %s -> %s: %w", l.User, l.Message, err)
		}
		if liked {
			res.Likes++
		}
	}

	logger.Info("seed applied",
		zap.Int("users", res.Users),
		zap.Int("messages", res.Messages),
		zap.Int("follows", res.Follows),
		zap.Int("likes", res.Likes),
	)
	return res, nil
}

func (s *Seeder) ensureUser(ctx context.Context, uf UserFixture) (*model.User, bool, error) {
	u, err := s.users.Signup(ctx, service.SignupInput{
		Username: uf.Username,
		Email:    uf.Email,
		Password: uf.Password,
		ImageURL: uf.ImageURL,
	})
	if errors.Is(err, service.ErrDuplicateUser) {
		existing, lookupErr := s.users.Authenticate(ctx, uf.Username, uf.Password)
		if lookupErr != nil {
			return nil, false, fmt.Errorf("user exists with different credentials: %w", lookupErr)
		}
		logger.Debug("seed user exists", zap.String("username", uf.Username))
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if uf.Bio == "" && uf.Location == "" {
		return u, true, nil
	}
	u, err = s.users.UpdateProfile(ctx, u.ID, uf.Password, service.ProfileInput{
		Username: u.Username,
		Email:    u.Email,
		ImageURL: u.ImageURL,
		Bio:      uf.Bio,
		Location: uf.Location,
	})
	return u, true, err
}
