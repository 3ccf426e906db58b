package driver

import (
	"bufio"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// Failure sources.
const (
	SourceGoTest = "go-test"
	SourceJUnit  = "junit"
	SourceExit   = "exit"
)

// Failure is one failing test observed during the run.
type Failure struct {
	Source string `json:"source"`
	Name   string `json:"name"`
}

// String renders the failure for console output.
func (f Failure) String() string {
	return f.Source + ": " + f.Name
}

// TestEvent is one line of `go test -json` output.
type TestEvent struct {
	Action  string `json:"Action"`
	Package string `json:"Package"`
	Test    string `json:"Test"`
	Output  string `json:"Output"`
}

// goTestScanner copies `go test -json` output through to out while
// reporting failed tests. Lines that are not JSON events are copied
// unchanged.
type goTestScanner struct {
	out    io.Writer
	onFail func(Failure)

	// failedPkgs tracks packages with at least one failed test, so the
	// package-level fail event is only reported for build failures.
	failedPkgs map[string]bool

	// failedTests holds every failed test per package. A parent whose
	// subtest already failed is not reported again.
	failedTests map[string][]string
}

func newGoTestScanner(out io.Writer, onFail func(Failure)) *goTestScanner {
	return &goTestScanner{
		out:         out,
		onFail:      onFail,
		failedPkgs:  make(map[string]bool),
		failedTests: make(map[string][]string),
	}
}

// Scan reads r to EOF.
func (s *goTestScanner) Scan(r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if _, werr := io.WriteString(s.out, line); werr != nil {
				return werr
			}
			s.handle(line)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *goTestScanner) handle(line string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return
	}

	var ev TestEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return
	}
	if ev.Action != "fail" {
		return
	}

	if ev.Test != "" {
		s.failedPkgs[ev.Package] = true
		reported := s.subtestFailed(ev.Package, ev.Test)
		s.failedTests[ev.Package] = append(s.failedTests[ev.Package], ev.Test)
		if !reported {
			s.onFail(Failure{Source: SourceGoTest, Name: ev.Package + "." + ev.Test})
		}
		return
	}
	if !s.failedPkgs[ev.Package] {
		s.onFail(Failure{Source: SourceGoTest, Name: ev.Package})
	}
}

func (s *goTestScanner) subtestFailed(pkg, test string) bool {
	prefix := test + "/"
	for _, name := range s.failedTests[pkg] {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// JUnit report structure. The root may be <testsuites> or a single
// <testsuite>; suites may nest.
type junitReport struct {
	XMLName xml.Name
	Suites  []junitSuite `xml:"testsuite"`
	Cases   []junitCase  `xml:"testcase"`
}

type junitSuite struct {
	Name   string       `xml:"name,attr"`
	Suites []junitSuite `xml:"testsuite"`
	Cases  []junitCase  `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Failure   *junitProblem `xml:"failure"`
	Error     *junitProblem `xml:"error"`
}

type junitProblem struct {
	Message string `xml:"message,attr"`
}

func (c junitCase) failed() bool {
	return c.Failure != nil || c.Error != nil
}

func (c junitCase) qualifiedName() string {
	if c.Classname == "" {
		return c.Name
	}
	return c.Classname + "." + c.Name
}

// ParseJUnit returns one Failure per test case in r that carries a
// <failure> or <error> element.
func ParseJUnit(r io.Reader) ([]Failure, error) {
	var report junitReport
	if err := xml.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to parse JUnit report: %w", err)
	}

	switch report.XMLName.Local {
	case "testsuites", "testsuite":
	default:
		return nil, fmt.Errorf("unexpected JUnit root element <%s>", report.XMLName.Local)
	}

	var failures []Failure
	collect := func(cases []junitCase) {
		for _, c := range cases {
			if c.failed() {
				failures = append(failures, Failure{Source: SourceJUnit, Name: c.qualifiedName()})
			}
		}
	}

	var walk func(suites []junitSuite)
	walk = func(suites []junitSuite) {
		for _, s := range suites {
			collect(s.Cases)
			walk(s.Suites)
		}
	}

	collect(report.Cases)
	walk(report.Suites)
	return failures, nil
}

// ParseJUnitFile reads a JUnit report from path.
func ParseJUnitFile(path string) ([]Failure, error) {
	f, err := os.Open(path) //nolint:gosec // report path comes from user input, expected behavior
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return ParseJUnit(f)
}
