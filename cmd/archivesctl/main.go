package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/kumbo-archives/archives-client/internal/api"
	"github.com/kumbo-archives/archives-client/internal/models"
	"github.com/kumbo-archives/archives-client/internal/report"
	"github.com/kumbo-archives/archives-client/internal/store"
	"github.com/kumbo-archives/archives-client/pkg/config"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
	"github.com/kumbo-archives/archives-client/pkg/logger"
	"github.com/kumbo-archives/archives-client/pkg/storage"
)

const usage = `archivesctl - Kumbo Archives command line client

Usage:
  archivesctl <command> [flags]

Commands:
  login        authenticate and persist the session
  logout       drop the current session
  whoami       show the authenticated account
  users        list accounts (admin)
  user-stats   show account aggregates (admin)
  docs         list documents
  search       search documents
  star         toggle a document's star
  upload       queue files and upload them
  download     fetch a document's content
  analytics    show the analytics dashboard
  report       export an analytics report (csv or pdf)
`

// app bundles the wired client and stores for the command handlers.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	client    *api.Client
	auth      *store.AuthStore
	users     *store.UserStore
	documents *store.DocumentStore
	analytics *store.AnalyticsStore
	uploads   *store.UploadManager
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	a, err := wire()
	if err != nil {
		fatal(err)
	}
	defer a.log.Sync()

	ctx := context.Background()
	if err := a.auth.Bootstrap(ctx); err != nil {
		// An expired session is not fatal; commands that need auth will say so.
		a.log.Debug("bootstrap", zap.Error(err))
	}

	cmd, args := os.Args[1], os.Args[2:]
	if err := a.run(ctx, cmd, args); err != nil {
		fatal(err)
	}
}

// wire builds the client/store graph. The auth store has to exist before the
// client so the token source can read from it; the API is bound afterwards.
func wire() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return nil, err
	}

	files, err := storage.NewFileStore(cfg.Session.Dir)
	if err != nil {
		return nil, err
	}

	auth := store.NewAuthStore(store.AuthStoreParams{Files: files, Logger: log})

	client, err := api.New(api.Options{
		BaseURL:        cfg.API.BaseURL,
		Prefix:         cfg.APIPrefix,
		Timeout:        cfg.API.Timeout,
		Logger:         log,
		TokenSource:    auth.Token,
		OnUnauthorized: auth.HandleUnauthorized,
	})
	if err != nil {
		return nil, err
	}
	auth.BindAPI(client)

	return &app{
		cfg:    cfg,
		log:    log,
		client: client,
		auth:   auth,
		users: store.NewUserStore(store.UserStoreParams{
			API:    client,
			Logger: log,
		}),
		documents: store.NewDocumentStore(store.DocumentStoreParams{
			API:              client,
			Logger:           log,
			DebounceInterval: cfg.Search.DebounceInterval,
		}),
		analytics: store.NewAnalyticsStore(store.AnalyticsStoreParams{
			API:          client,
			Logger:       log,
			DashboardTTL: cfg.Analytics.DashboardTTL,
		}),
		uploads: store.NewUploadManager(store.UploadManagerParams{
			API:              client,
			Logger:           log,
			MaxFileSizeBytes: cfg.Upload.MaxFileSizeBytes,
			AllowedMIMEs:     cfg.Upload.AllowedMIMEs,
			Categories:       cfg.Upload.Categories,
			AutoClearDelay:   cfg.Upload.AutoClearDelay,
		}),
	}, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		a.auth.Logout(ctx)
		fmt.Println("logged out")
		return nil
	case "whoami":
		return a.cmdWhoami()
	case "users":
		return a.cmdUsers(ctx, args)
	case "user-stats":
		return a.cmdUserStats(ctx)
	case "docs":
		return a.cmdDocs(ctx, args)
	case "search":
		return a.cmdSearch(ctx, args)
	case "star":
		return a.cmdStar(ctx, args)
	case "upload":
		return a.cmdUpload(ctx, args)
	case "download":
		return a.cmdDownload(ctx, args)
	case "analytics":
		return a.cmdAnalytics(ctx, args)
	case "report":
		return a.cmdReport(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	session, err := a.auth.Login(ctx, models.LoginRequest{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s)\n", session.User.FullName, session.User.Role)
	return nil
}

func (a *app) cmdWhoami() error {
	session := a.auth.Session()
	if session == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "not logged in")
	}
	u := session.User
	fmt.Printf("%s <%s>\nrole: %s\ndepartment: %s\npermissions: %s\n",
		u.FullName, u.Email, u.Role, u.Department, strings.Join(u.Permissions, ", "))
	return nil
}

func (a *app) cmdUsers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("users", flag.ExitOnError)
	role := fs.String("role", "", "filter by role")
	department := fs.String("department", "", "filter by department")
	search := fs.String("search", "", "search name or email")
	page := fs.Int("page", 0, "page number")
	fs.Parse(args)

	a.users.SetFilters(map[string]string{
		"role":       *role,
		"department": *department,
	})
	if *page > 0 {
		a.users.SetPage(*page)
	}

	var (
		users []models.User
		err   error
	)
	if *search != "" {
		users, err = a.users.Search(ctx, *search, nil)
	} else {
		users, err = a.users.Fetch(ctx, nil)
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tACTIVE")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.FullName, u.Email, u.Role, u.Active)
	}
	w.Flush()

	p := a.users.Pagination()
	fmt.Printf("page %d/%d (%d total)\n", p.Page, p.Pages, p.Total)
	return nil
}

func (a *app) cmdUserStats(ctx context.Context) error {
	stats, err := a.users.Stats(ctx, false)
	if err != nil {
		return err
	}
	fmt.Printf("total: %d\nactive: %d\n", stats.Total, stats.Active)
	for role, count := range stats.ByRole {
		fmt.Printf("  %s: %d\n", role, count)
	}
	return nil
}

func (a *app) cmdDocs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("docs", flag.ExitOnError)
	category := fs.String("category", "", "filter by category")
	department := fs.String("department", "", "filter by department")
	starred := fs.Bool("starred", false, "only starred documents")
	page := fs.Int("page", 0, "page number")
	fs.Parse(args)

	filters := map[string]string{
		"category":   *category,
		"department": *department,
	}
	if *starred {
		filters["starred"] = "true"
	}
	a.documents.SetFilters(filters)
	if *page > 0 {
		a.documents.SetPage(*page)
	}

	docs, err := a.documents.Fetch(ctx, nil)
	if err != nil {
		return err
	}
	printDocuments(docs)

	p := a.documents.Pagination()
	fmt.Printf("page %d/%d (%d total)\n", p.Page, p.Pages, p.Total)
	return nil
}

func (a *app) cmdSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	query := fs.String("q", "", "search query")
	fs.Parse(args)
	if *query == "" {
		return appErrors.Clone(appErrors.ErrValidation, "-q is required")
	}

	docs, err := a.documents.Search(ctx, *query)
	if err != nil {
		return err
	}
	printDocuments(docs)
	return nil
}

func printDocuments(docs []models.Document) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tSIZE\tSTARRED")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\n", d.ID, d.Title, d.Category, d.FileSize, d.Starred)
	}
	w.Flush()
}

func (a *app) cmdStar(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return appErrors.Clone(appErrors.ErrValidation, "usage: star <document-id>")
	}
	doc, err := a.documents.ToggleStar(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s starred=%t\n", doc.Title, doc.Starred)
	return nil
}

func (a *app) cmdUpload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	title := fs.String("title", "", "document title (defaults to the file name)")
	category := fs.String("category", "", "document category")
	department := fs.String("department", "", "owning department")
	keywords := fs.String("keywords", "", "comma-separated keywords")
	public := fs.Bool("public", false, "mark the document public")
	fs.Parse(args)

	paths := fs.Args()
	if len(paths) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "usage: upload [flags] <file>...")
	}

	session := a.auth.Session()
	for _, path := range paths {
		item, err := a.uploads.Add(path, session)
		if err != nil {
			return err
		}
		meta := item.Metadata
		if *title != "" && len(paths) == 1 {
			meta.Title = *title
		}
		if *category != "" {
			meta.Category = *category
		}
		if *department != "" {
			meta.Department = *department
		}
		if *keywords != "" {
			meta.Keywords = strings.Split(*keywords, ",")
		}
		meta.IsPublic = *public
		if err := a.uploads.SetMetadata(item.ID, meta); err != nil {
			return err
		}
	}

	summary := a.uploads.Run(ctx)
	fmt.Printf("uploaded %d, failed %d\n", summary.Succeeded, summary.Failed)
	for _, item := range a.uploads.Items() {
		if item.Status == models.UploadError {
			fmt.Printf("  %s: %s\n", item.FileName, item.Error)
		}
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d upload(s) failed", summary.Failed)
	}
	return nil
}

func (a *app) cmdDownload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	out := fs.String("out", "", "output path (defaults to the server's file name)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return appErrors.Clone(appErrors.ErrValidation, "usage: download [-out path] <document-id>")
	}

	tmp, err := os.CreateTemp("", "kumbo-download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	name, err := a.documents.Download(ctx, fs.Arg(0), tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	target := *out
	if target == "" {
		target = name
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return err
	}
	fmt.Printf("saved %s\n", target)
	return nil
}

func (a *app) cmdAnalytics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analytics", flag.ExitOnError)
	force := fs.Bool("force", false, "bypass the dashboard cache")
	all := fs.Bool("all", false, "refresh every facet")
	timeRange := fs.String("range", "", "detailed range (7d, 30d, 90d, 1y)")
	fs.Parse(args)

	if *all {
		snapshot := a.analytics.RefreshAll(ctx)
		if snapshot.Dashboard != nil {
			printDashboard(snapshot.Dashboard)
		}
		if snapshot.Health != nil {
			fmt.Printf("health: %s (uptime %ds)\n", snapshot.Health.Status, snapshot.Health.UptimeSeconds)
		}
		fmt.Printf("dashboard updated %s\n", a.analytics.TimeAgo(snapshot.DashboardUpdated))
		return nil
	}

	if *timeRange != "" {
		detailed, err := a.analytics.FetchDetailed(ctx, *timeRange)
		if err != nil {
			return err
		}
		fmt.Printf("range %s: %d upload days, %d search days\n",
			detailed.Range, len(detailed.UploadsByDay), len(detailed.SearchesByDay))
		for _, c := range detailed.TopCategories {
			fmt.Printf("  %s: %d\n", c.Category, c.Count)
		}
		return nil
	}

	dashboard, err := a.analytics.FetchDashboard(ctx, *force)
	if err != nil {
		return err
	}
	printDashboard(dashboard)
	snapshot := a.analytics.Snapshot()
	fmt.Printf("updated %s\n", a.analytics.TimeAgo(snapshot.DashboardUpdated))
	return nil
}

func printDashboard(d *models.DashboardAnalytics) {
	fmt.Printf("documents: %d\nusers: %d\nuploads today: %d\nsearches today: %d\nstorage: %d bytes\n",
		d.TotalDocuments, d.TotalUsers, d.UploadsToday, d.SearchesToday, d.StorageUsed)
}

func (a *app) cmdReport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	kind := fs.String("kind", "dashboard", "report kind: dashboard, detailed, activity")
	format := fs.String("format", "csv", "output format: csv or pdf")
	out := fs.String("out", "", "output path")
	timeRange := fs.String("range", store.DefaultDetailedRange, "detailed range")
	fs.Parse(args)

	if *out == "" {
		*out = fmt.Sprintf("kumbo-%s-report.%s", *kind, *format)
	}

	builder := report.NewBuilder()

	var data []byte
	switch *kind {
	case "dashboard":
		dashboard, err := a.analytics.FetchDashboard(ctx, false)
		if err != nil {
			return err
		}
		ds, err := builder.Dashboard(dashboard)
		if err != nil {
			return err
		}
		data, err = builder.Render(ds, report.Format(*format), "Kumbo Archives Dashboard")
		if err != nil {
			return err
		}
	case "detailed":
		detailed, err := a.analytics.FetchDetailed(ctx, *timeRange)
		if err != nil {
			return err
		}
		ds, err := builder.Detailed(detailed)
		if err != nil {
			return err
		}
		data, err = builder.Render(ds, report.Format(*format), "Kumbo Archives Detailed Analytics")
		if err != nil {
			return err
		}
	case "activity":
		activity, err := a.analytics.FetchActivity(ctx, 1, 100)
		if err != nil {
			return err
		}
		ds, err := builder.Activity(activity)
		if err != nil {
			return err
		}
		data, err = builder.Render(ds, report.Format(*format), "Kumbo Archives Activity")
		if err != nil {
			return err
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, "kind must be dashboard, detailed or activity")
	}

	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *out)
	return nil
}

func fatal(err error) {
	appErr := appErrors.FromError(err)
	fmt.Fprintf(os.Stderr, "error: %s\n", appErr.Message)
	os.Exit(1)
}
