// Package main runs the portfolio admin shell: an interactive client
// for the content-management API covering login, blog editing with
// content blocks and media attachments, and user administration.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"portfoliocore/internal/blocks"
	"portfoliocore/internal/config"
	"portfoliocore/internal/credentials"
	"portfoliocore/internal/logger"
	"portfoliocore/internal/models"
	"portfoliocore/internal/repository"
	"portfoliocore/internal/service"
)

var (
	version   string
	buildDate string
)

// shell holds the live session state of the REPL.
type shell struct {
	auth    *Authed
	log     *zap.Logger
	scanner *bufio.Scanner
}

// Authed bundles the flows and repositories bound to the current
// session. Rebuilt on every login.
type Authed struct {
	flow    *service.Auth
	session *service.Session
	blogs   *repository.Blogs
	users   *repository.Users
}

func main() {
	options := config.Parse()

	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()

	if version != "" {
		fmt.Printf("portfolioctl %s (%s)\n", version, buildDate)
	}

	httpClient := &http.Client{Timeout: options.RequestTimeout}
	store := credentials.New(options.CredentialsPath, log.Log)

	onLoggedOut := func() {
		fmt.Println("Session expired, please log in again.")
	}
	flow := service.NewAuth(options.BaseURL, httpClient, store, options.RefreshTimeout, onLoggedOut, log.Log)

	authed := &Authed{flow: flow}
	if session := flow.Restore(); session != nil {
		authed.bind(session, log.Log)
		fmt.Printf("Restored session (role: %s)\n", session.Role)
	}

	s := &shell{auth: authed, log: log.Log, scanner: bufio.NewScanner(os.Stdin)}
	s.run()
}

func (a *Authed) bind(session *service.Session, log *zap.Logger) {
	a.session = session
	a.blogs = repository.NewBlogs(session.Client, log)
	a.users = repository.NewUsers(session.Client, log)
}

// run is the interactive command loop.
func (s *shell) run() {
	ctx := context.Background()

	for {
		fmt.Print("portfolio> ")
		if !s.scanner.Scan() {
			break
		}
		args := strings.Fields(strings.TrimSpace(s.scanner.Text()))
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "help":
			fmt.Println("Commands: help, login, logout, list, show <id>, create, edit <id>, publish <id>, delete <id>, users, public, exit")
		case "login":
			s.login(ctx)
		case "logout":
			s.auth.flow.Logout()
			s.auth.session = nil
		case "list":
			s.list(ctx)
		case "show":
			if len(args) < 2 {
				fmt.Println("Usage: show <id>")
				continue
			}
			s.show(args[1])
		case "create":
			s.save(ctx, "")
		case "edit":
			if len(args) < 2 {
				fmt.Println("Usage: edit <id>")
				continue
			}
			s.save(ctx, args[1])
		case "publish":
			if len(args) < 2 {
				fmt.Println("Usage: publish <id>")
				continue
			}
			s.publish(ctx, args[1])
		case "delete":
			if len(args) < 2 {
				fmt.Println("Usage: delete <id>")
				continue
			}
			s.remove(ctx, args[1])
		case "users":
			s.listUsers(ctx)
		case "public":
			s.listPublic(ctx)
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func (s *shell) login(ctx context.Context) {
	email := s.prompt("Email: ")
	if err := s.auth.flow.SendOTP(ctx, email); err != nil {
		fmt.Println("Failed to send code:", err)
		return
	}
	code := s.prompt("One-time code: ")
	session, err := s.auth.flow.VerifyOTP(ctx, email, code)
	if err != nil {
		fmt.Println("Login failed:", err)
		return
	}
	s.auth.bind(session, s.log)
	fmt.Printf("Logged in (role: %s)\n", session.Role)
}

func (s *shell) requireSession() bool {
	if s.auth.session == nil {
		fmt.Println("Not logged in. Use 'login' first.")
		return false
	}
	return true
}

func (s *shell) list(ctx context.Context) {
	if !s.requireSession() {
		return
	}
	docs, err := s.auth.blogs.List(ctx)
	if err != nil {
		fmt.Println("Failed to list blogs:", err)
		return
	}
	for _, doc := range docs {
		preview := blocks.PreviewText(doc.Blocks)
		if preview == "" {
			preview = "(no content)"
		}
		fmt.Printf("%s  [%s]  %s — %s\n", doc.ID, doc.Status, doc.Title, preview)
	}
}

func (s *shell) show(id string) {
	if !s.requireSession() {
		return
	}
	doc, ok := s.auth.blogs.Get(id)
	if !ok {
		fmt.Println("Not in cache; run 'list' first.")
		return
	}
	fmt.Printf("%s [%s] slug=%s\n", doc.Title, doc.Status, doc.Slug)
	for i, b := range blocks.Live(doc.Blocks) {
		switch b.Type {
		case models.BlockMedia:
			url := ""
			if b.Media != nil {
				url = b.Media.URL
			}
			fmt.Printf("  %d. media: %s\n", i+1, url)
		default:
			fmt.Printf("  %d. %s: %s\n", i+1, b.Type, b.Text)
		}
	}
}

// save drives the block editor for create (id == "") and edit.
func (s *shell) save(ctx context.Context, id string) {
	if !s.requireSession() {
		return
	}

	var list []models.ContentBlock
	status := models.StatusDraft
	title := ""
	if id != "" {
		doc, ok := s.auth.blogs.Get(id)
		if !ok {
			fmt.Println("Not in cache; run 'list' first.")
			return
		}
		list, status, title = doc.Blocks, doc.Status, doc.Title
		fmt.Printf("Editing %q\n", title)
	}

	if t := s.prompt(fmt.Sprintf("Title [%s]: ", title)); t != "" {
		title = t
	}

	files := models.PendingFileMap{}
	fmt.Println("Block commands: h <text> | p <text> | m <file path> | rm <n> | done")
	for {
		line := s.prompt("block> ")
		cmd, rest, _ := strings.Cut(line, " ")
		switch cmd {
		case "h":
			list = blocks.Append(list, models.BlockHeading)
			list = blocks.SetText(list, list[len(list)-1].ID, rest)
		case "p":
			list = blocks.Append(list, models.BlockParagraph)
			list = blocks.SetText(list, list[len(list)-1].ID, rest)
		case "m":
			data, err := os.ReadFile(rest)
			if err != nil {
				fmt.Println("Cannot read file:", err)
				continue
			}
			key := blocks.NewPendingKey()
			files[key] = models.PendingFile{Name: filepath.Base(rest), Data: data}
			list = blocks.Append(list, models.BlockMedia)
			list = blocks.AttachMedia(list, list[len(list)-1].ID, key)
		case "rm":
			live := blocks.Live(list)
			var n int
			if _, err := fmt.Sscanf(rest, "%d", &n); err != nil || n < 1 || n > len(live) {
				fmt.Println("Usage: rm <block number from 'show'>")
				continue
			}
			list = blocks.MarkDeleted(list, live[n-1].ID)
		case "done":
			goto submit
		case "":
		default:
			fmt.Println("Unknown block command")
		}
	}

submit:
	var (
		doc models.BlogDocument
		err error
	)
	if id == "" {
		doc, err = s.auth.blogs.Create(ctx, title, status, list, files)
	} else {
		doc, err = s.auth.blogs.Update(ctx, id, title, status, list, files)
	}
	if err != nil {
		// Edits and pending files stay with the caller; nothing is
		// lost on a failed save.
		fmt.Println("Save failed:", err)
		return
	}
	fmt.Printf("Saved %s (%s)\n", doc.ID, doc.Status)
}

func (s *shell) publish(ctx context.Context, id string) {
	if !s.requireSession() {
		return
	}
	doc, ok := s.auth.blogs.Get(id)
	if !ok {
		fmt.Println("Not in cache; run 'list' first.")
		return
	}
	updated, err := s.auth.blogs.Update(ctx, id, doc.Title, models.StatusPublished, doc.Blocks, nil)
	if err != nil {
		fmt.Println("Publish failed:", err)
		return
	}
	fmt.Printf("Published %s (slug: %s)\n", updated.ID, updated.Slug)
}

func (s *shell) remove(ctx context.Context, id string) {
	if !s.requireSession() {
		return
	}
	if err := s.auth.blogs.Remove(ctx, id); err != nil {
		fmt.Println("Delete failed:", err)
		return
	}
	fmt.Println("Deleted", id)
}

func (s *shell) listUsers(ctx context.Context) {
	if !s.requireSession() {
		return
	}
	users, err := s.auth.users.List(ctx)
	if err != nil {
		fmt.Println("Failed to list users:", err)
		return
	}
	for _, u := range users {
		fmt.Printf("%s  %-10s %s <%s>\n", u.ID, u.Role, u.Name, u.Email)
	}
}

func (s *shell) listPublic(ctx context.Context) {
	// Public reads work without a session; fall back to the
	// credential-less pre-login client.
	blogsRepo := s.auth.blogs
	if blogsRepo == nil {
		blogsRepo = repository.NewBlogs(s.auth.flow.PublicClient(), s.log)
	}
	docs, err := blogsRepo.Public(ctx)
	if err != nil {
		fmt.Println("Failed to fetch public blogs:", err)
		return
	}
	for _, doc := range docs {
		fmt.Printf("%s  %s (/blogs/%s)\n", doc.UpdatedAt.Format("2006-01-02"), doc.Title, doc.Slug)
	}
}

func (s *shell) prompt(label string) string {
	fmt.Print(label)
	if !s.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(s.scanner.Text())
}
