package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/alphabot-ai/forum/internal/client"
	"github.com/alphabot-ai/forum/internal/model"
)

var users = []string{"alice", "bob", "carol", "dave", "erin"}

var threads = []struct {
	title   string
	content string
}{
	{"Welcome to the forum", "Introduce yourself here."},
	{"Show the forum: a tiny Go web server", "Built on net/http and not much else."},
	{"What's your favorite database?", ""},
	{"SQLite in production, yes or no", "Asking for a friend with one box and no budget."},
	{"Ask the forum: learning resources for Go", ""},
	{"Weekly off-topic thread", "Anything goes, within reason."},
	{"Release notes 0.1", "Threads, comments, votes and follows."},
	{"How do you structure an internal/ directory?", ""},
}

var comments = []string{
	"Great post, thanks for sharing.",
	"I disagree with the premise here.",
	"Has anyone benchmarked this?",
	"This reminds me of the early days of the web.",
	"Interesting take. I wonder how this scales.",
	"I've been working on something similar.",
	"Can you share more details?",
	"Upvoted for visibility.",
	"Not sure I agree, but appreciate the perspective.",
	"Would love a follow-up on this.",
}

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "Forum server URL")
	flag.Parse()

	log.Printf("Seeding forum at %s...\n", *baseURL)

	helper := client.NewTestHelper(*baseURL)
	var clients []*client.Client
	for _, name := range users {
		c, err := helper.CreateAuthenticatedClient(name)
		if err != nil {
			log.Fatalf("register %s: %v", name, err)
		}
		log.Printf("✓ Registered %s (password %q)", name, client.TestPassword(name))
		clients = append(clients, c)
	}

	var slugs []string
	for _, t := range threads {
		author := rand.Intn(len(clients))
		thread, err := clients[author].CreateThread(t.title, t.content)
		if err != nil {
			log.Printf("✗ Failed to post thread: %v", err)
			continue
		}
		slugs = append(slugs, thread.Slug)
		log.Printf("✓ Posted /%s (by %s)", thread.Slug, users[author])
	}

	var commentCount int
	for _, slug := range slugs {
		// 1-4 root comments per thread
		for i := rand.Intn(4) + 1; i > 0; i-- {
			author := rand.Intn(len(clients))
			root, err := clients[author].PostComment(slug, comments[rand.Intn(len(comments))])
			if err != nil {
				log.Printf("✗ Failed to comment: %v", err)
				continue
			}
			commentCount++
			seedReplies(clients, slug, root.ID, 1, &commentCount)
		}
	}
	log.Printf("✓ Added %d comments", commentCount)

	var votes int
	for _, c := range clients {
		for _, slug := range slugs {
			if rand.Float32() < 0.5 {
				continue
			}
			if _, err := c.VoteThread(slug); err == nil {
				votes++
			}
		}
	}
	log.Printf("✓ Added %d thread votes", votes)

	var follows int
	for i, c := range clients {
		for j, name := range users {
			if i == j || rand.Float32() < 0.6 {
				continue
			}
			if _, err := c.Follow(name); err == nil {
				follows++
			}
		}
	}
	log.Printf("✓ Added %d follows", follows)

	fmt.Println("\n=== Seed Complete ===")
	fmt.Printf("Users:    %d\n", len(users))
	fmt.Printf("Threads:  %d\n", len(slugs))
	fmt.Printf("Comments: %d\n", commentCount)
	fmt.Println("\nView at:", *baseURL)
}

// seedReplies sometimes answers parent, up to three levels deep.
func seedReplies(clients []*client.Client, slug string, parent model.CommentID, depth int, count *int) {
	if depth > 3 || rand.Float32() > 0.4 {
		return
	}
	author := rand.Intn(len(clients))
	reply, err := clients[author].Reply(slug, parent, comments[rand.Intn(len(comments))])
	if err != nil {
		log.Printf("✗ Failed to reply: %v", err)
		return
	}
	*count++
	if _, err := clients[rand.Intn(len(clients))].VoteComment(slug, reply.ID); err != nil {
		log.Printf("✗ Failed to vote on comment: %v", err)
	}
	log.Printf("  ↳ Reply %s to %s (by %s)", reply.ID, parent, users[author])
	seedReplies(clients, slug, reply.ID, depth+1, count)
}
