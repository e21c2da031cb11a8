package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bugtracker/internal/client"
	"bugtracker/internal/db"
)

const jestLog = `> web@1.0.0 test
> jest

FAIL src/components/Login.test.js
  ● Login › renders correctly

    Expected 200 got 404
      at Object.<anonymous> (src/components/Login.test.js:14:5)

FAIL tests/integration/api.test.js
  ● API › returns projects

    TypeError: fetch failed on line 22

Tests: 2 failed, 8 passed, 10 total
`

func main() {
	base := envOr("API_BASE_URL", "http://localhost:8000")
	token := envOr("API_TOKEN", "dev-secret-token")

	baseFlag := flag.String("base", base, "API base URL (e.g., http://localhost:8000)")
	tokenFlag := flag.String("token", token, "API token for admin endpoints")
	async := flag.Bool("async", false, "also exercise the queued ingestion path")
	waitAsync := flag.Duration("wait-async", 30*time.Second, "how long to poll a queued report")
	flag.Parse()

	ctx := context.Background()
	c := client.New(*baseFlag, 12*time.Second)
	admin := &client.Admin{Client: c, Token: *tokenFlag}

	// 1) Admin user, so CI bugs have a reporter
	u, err := admin.CreateUser(ctx, "Smoke Admin", fmt.Sprintf("smoke+%d@example.com", time.Now().Unix()), db.RoleAdmin)
	if err != nil {
		fatalf("create user: %v", err)
	}
	fmt.Printf("✅ Created admin: id=%s\n", u.ID)

	// 2) Project with a git repository gets an API key
	p, err := admin.CreateProject(ctx, "Smoke Project", "https://github.com/acme/web", u.ID)
	if err != nil {
		fatalf("create project: %v", err)
	}
	if p.APIKey == "" {
		fatalf("project %s was created without an API key", p.ID)
	}
	fmt.Printf("✅ Created project: id=%s\n", p.ID)

	// 3) Post failing Jest output
	report := client.CIReport{
		ProjectID:  p.ID,
		Commit:     "9e454b2c0ffee",
		Branch:     "main",
		Repository: "acme/web",
		Output:     jestLog,
	}
	res, err := c.ReportCI(ctx, p.APIKey, report)
	if err != nil {
		fatalf("ci report: %v", err)
	}
	fmt.Printf("✅ CI report filed %d bug(s)\n", res.Created)
	for _, b := range res.Bugs {
		fmt.Printf("   %s %s\n", b.ID, b.Title)
	}

	// 4) Passing output files nothing
	pass, err := c.ReportCI(ctx, p.APIKey, client.CIReport{ProjectID: p.ID, Output: "Tests: 10 passed, 10 total\n"})
	if err != nil {
		fatalf("passing ci report: %v", err)
	}
	fmt.Printf("✅ Passing run: %q\n", pass.Message)

	// 5) Optional queued report
	if *async {
		q, err := c.ReportCIAsync(ctx, p.APIKey, report)
		if err != nil {
			fatalf("async ci report: %v", err)
		}
		fmt.Printf("✅ Queued report %s\n", q.ReportID)
		deadline := time.Now().Add(*waitAsync)
		for {
			st, err := admin.CIReport(ctx, q.ReportID)
			if err != nil {
				fatalf("get report: %v", err)
			}
			if st.Status == db.ReportDone || st.Status == db.ReportFailed {
				fmt.Printf("✅ Report %s: status=%s created=%d %s\n", st.ID, st.Status, st.Created, st.Error)
				break
			}
			if time.Now().After(deadline) {
				fmt.Printf("ℹ️  Report still %s, is the worker running?\n", st.Status)
				break
			}
			time.Sleep(2 * time.Second)
		}
	}

	bugs, err := admin.ProjectBugs(ctx, p.ID)
	if err != nil {
		fatalf("list bugs: %v", err)
	}
	fmt.Printf("🎉 Smoke run OK. Project %s has %d bug(s)\n", p.ID, len(bugs))
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatalf(format string, args ...any) {
	fmt.Printf("❌ "+format+"\n", args...)
	os.Exit(1)
}
