package main

import (
	"errors"
	"flag"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/alphabot-ai/ysocial/internal/client"
)

var users = []string{"alice", "bob", "carol", "dave", "erin"}

var posts = []struct {
	message  string
	hashtags []string
}{
	{"Hello world, first post here", []string{"#hello"}},
	{"Coffee first, code second", []string{"#coffee", "#dev"}},
	{"Anyone else reading about distributed logs today?", []string{"#ddia"}},
	{"Shipped a small fix before lunch", []string{"#dev"}},
	{"Sunset over the river was unreal", []string{"#photo"}},
	{`Saved it under C:\temp by mistake`, []string{"#oops"}},
	{"Weekend plans: nothing at all", nil},
	{"Tip: keep your functions short", []string{"#dev", "#tips"}},
	{"Back from the mountains", []string{"#travel"}},
	{"Who is up for a board game night?", []string{"#games"}},
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "ysocial server URL")
	follows := flag.Int("follows", 2, "Follow edges to create per user")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	logger.Info("seeding", slog.String("url", *baseURL))

	helper := client.NewTestHelper(*baseURL)
	clients := make([]*client.Client, 0, len(users))
	for _, name := range users {
		c, err := helper.CreateAuthenticatedClient(name)
		if err != nil {
			logger.Error("register failed", slog.String("user", name), slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("registered", slog.String("user", name))
		clients = append(clients, c)
	}

	for _, p := range posts {
		i := rand.IntN(len(clients))
		result, err := clients[i].CreatePost(p.message, p.hashtags)
		switch {
		case errors.Is(err, client.ErrRejected):
			logger.Info("post rejected", slog.String("user", users[i]), slog.String("reason", result.Reason))
			continue
		case err != nil:
			logger.Warn("post failed", slog.String("user", users[i]), slog.String("error", err.Error()))
			continue
		}
		if result.Post != nil {
			logger.Info("posted", slog.String("user", users[i]), slog.Int64("id", result.Post.ID))
		}
		// Post ids are millisecond timestamps; spread them out a little.
		time.Sleep(20 * time.Millisecond)
	}

	for i, c := range clients {
		for n := 0; n < *follows; n++ {
			target := users[(i+1+n)%len(users)]
			if target == users[i] {
				continue
			}
			if err := c.Follow(target); err != nil {
				logger.Warn("follow failed", slog.String("user", users[i]), slog.String("target", target), slog.String("error", err.Error()))
				continue
			}
			logger.Info("followed", slog.String("user", users[i]), slog.String("target", target))
		}
	}

	logger.Info("seeding complete", slog.Int("users", len(clients)))
}
