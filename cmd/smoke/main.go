// Command smoke checks a running interview backend end to end.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BerylCAtieno/persona-interviewer/internal/backend"
	"github.com/BerylCAtieno/persona-interviewer/internal/models"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

type smokeTest struct {
	client *backend.Client
	topic  string
	ctx    context.Context
}

func main() {
	baseURL := flag.String("url", backend.DefaultBaseURL, "Base URL of the interview backend")
	testType := flag.String("test", "all", "Test type: all, probe, personas, session, history, custom")
	topic := flag.String("topic", "online coaching service", "Project topic used for generated personas")
	timeout := flag.Duration("timeout", backend.DefaultTimeout, "Timeout for each backend call")
	flag.Parse()

	st := &smokeTest{
		client: backend.NewClient(*baseURL, backend.WithTimeout(*timeout)),
		topic:  *topic,
		ctx:    context.Background(),
	}

	printHeader("Persona Interview Backend - Smoke Test")
	fmt.Printf("%sBase URL: %s%s\n\n", colorCyan, st.client.BaseURL(), colorReset)

	switch *testType {
	case "all":
		st.runAll()
	case "probe":
		exitOn(st.testProbe())
	case "personas":
		exitOn(st.testPersonas())
	case "session":
		exitOn(st.testPersonas() && st.testSession())
	case "history":
		exitOn(st.testHistory())
	case "custom":
		if strings.TrimSpace(*topic) == "" {
			printError("A topic is required for the custom test. Use -topic")
			os.Exit(1)
		}
		exitOn(st.testPersonas() && st.testSession())
	default:
		printError(fmt.Sprintf("Unknown test type: %s", *testType))
		fmt.Println("\nAvailable tests: all, probe, personas, session, history, custom")
		os.Exit(1)
	}
}

func exitOn(ok bool) {
	if !ok {
		os.Exit(1)
	}
}

func (st *smokeTest) runAll() {
	tests := []struct {
		name string
		fn   func() bool
	}{
		{"Probe", st.testProbe},
		{"Personas", st.testPersonas},
		{"Session", st.testSession},
		{"History", st.testHistory},
	}

	passed, failed := 0, 0
	for _, test := range tests {
		start := time.Now()
		if test.fn() {
			passed++
		} else {
			failed++
		}
		fmt.Printf("%s(%s took %s)%s\n\n", colorYellow, test.name, time.Since(start).Round(time.Millisecond), colorReset)
	}

	printHeader("Test Summary")
	fmt.Printf("%sPassed: %d%s\n", colorGreen, passed, colorReset)
	fmt.Printf("%sFailed: %d%s\n", colorRed, failed, colorReset)
	fmt.Printf("Total: %d\n", passed+failed)

	if failed > 0 {
		os.Exit(1)
	}
}

func (st *smokeTest) testProbe() bool {
	printTestHeader("Checking backend connectivity")
	if err := st.client.Probe(st.ctx); err != nil {
		printError(backend.DescribeProbeFailure(err))
		return false
	}
	printSuccess("Backend is reachable")
	return true
}

func (st *smokeTest) project() models.ProjectInfo {
	p := models.ProjectInfo{
		Topic: st.topic,
		ProductsServices: []models.ProductService{{
			Name:           "Smoke test product",
			TargetAudience: "people interested in " + st.topic,
			Benefits:       "saves time",
			BenefitReason:  "automates the boring parts",
			BasicInfo:      "monthly subscription",
		}},
	}
	p.EnsureIDs()
	return p
}

func (st *smokeTest) testPersonas() bool {
	printTestHeader("Generating personas")
	resp, err := st.client.GeneratePersonas(st.ctx, st.project(), 3, "")
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	if len(resp.Personas) < backend.RequiredSelection {
		printError(fmt.Sprintf("Expected at least %d personas, got %d", backend.RequiredSelection, len(resp.Personas)))
		return false
	}
	for _, p := range resp.Personas {
		fmt.Printf("  #%d %s\n", p.ID, p.Name)
	}
	printSuccess(fmt.Sprintf("Generated %d personas", len(resp.Personas)))
	return true
}

// testSession walks the backend session in its required order with one
// question per persona.
func (st *smokeTest) testSession() bool {
	printTestHeader("Running one interview round")

	if err := st.client.SelectPersonas(st.ctx, []int{0, 1, 2}); err != nil {
		printError(fmt.Sprintf("select personas: %v", err))
		return false
	}
	questions, err := st.client.DefaultQuestions(st.ctx, st.topic)
	if err != nil {
		printError(fmt.Sprintf("default questions: %v", err))
		return false
	}
	if len(questions) == 0 {
		printError("Backend returned no default questions")
		return false
	}
	fmt.Printf("  %d default questions, using the first\n", len(questions))

	for i := 0; i < backend.RequiredSelection; i++ {
		resp, err := st.client.ConductInterview(st.ctx, i, questions[:1], false)
		if err != nil {
			printError(fmt.Sprintf("interview persona %d: %v", i, err))
			return false
		}
		fmt.Printf("  %s answered %d question(s)\n", resp.PersonaName, len(resp.InterviewResults))
	}

	status, err := st.client.SessionStatus(st.ctx)
	if err != nil {
		printError(fmt.Sprintf("session status: %v", err))
		return false
	}
	printJSON(status)

	analysis, err := st.client.GenerateAnalysis(st.ctx)
	if err != nil {
		printError(fmt.Sprintf("generate analysis: %v", err))
		return false
	}
	fmt.Printf("\n%sAnalysis:%s\n", colorGreen, colorReset)
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println(analysis.Analysis)
	fmt.Println(strings.Repeat("=", 80))

	printSuccess("Interview round completed")
	return true
}

func (st *smokeTest) testHistory() bool {
	printTestHeader("Listing interview history")
	entries, err := st.client.ListHistory(st.ctx)
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	printSuccess(fmt.Sprintf("%d saved runs", len(entries)))
	if len(entries) > 0 {
		printJSON(entries[0])
	}
	return true
}

func printHeader(text string) {
	fmt.Printf("\n%s%s%s\n", colorBlue, strings.Repeat("=", len(text)+4), colorReset)
	fmt.Printf("%s= %s =%s\n", colorBlue, text, colorReset)
	fmt.Printf("%s%s%s\n\n", colorBlue, strings.Repeat("=", len(text)+4), colorReset)
}

func printTestHeader(text string) {
	fmt.Printf("%s[TEST] %s%s\n", colorCyan, text, colorReset)
	fmt.Println(strings.Repeat("-", 80))
}

func printSuccess(text string) {
	fmt.Printf("%s✓ %s%s\n", colorGreen, text, colorReset)
}

func printError(text string) {
	fmt.Printf("%s✗ %s%s\n", colorRed, text, colorReset)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err == nil {
		fmt.Printf("\n%sResponse:%s\n%s\n", colorYellow, colorReset, data)
	}
}
