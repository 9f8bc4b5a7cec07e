// ABOUTME: Admin CLI for the helmgate console JSON API
// ABOUTME: Authenticates with a JWT stored in a TOML credentials file

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"
)

const banner = `
 _          _                       _                       _           _
| |__   ___| |_ __ ___   __ _  __ _| |_ ___        __ _  __| |_ __ ___ (_)_ __
| '_ \ / _ \ | '_ ' _ \ / _' |/ _' | __/ _ \_____ / _' |/ _' | '_ ' _ \| | '_ \
| | | |  __/ | | | | | | (_| | (_| | ||  __/_____| (_| | (_| | | | | | | | | | |
|_| |_|\___|_|_| |_| |_|\__, |\__,_|\__\___|      \__,_|\__,_|_| |_| |_|_|_| |_|
                        |___/
`

// credentials is the on-disk CLI state, stored as TOML.
type credentials struct {
	Server string `toml:"server"`
	Email  string `toml:"email"`
	Token  string `toml:"token"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = cmdLogin(args)
	case "me":
		err = cmdMe()
	case "users":
		err = cmdUsers(args)
	case "token":
		err = cmdToken()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: helmgate-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  login                     Sign in and store credentials")
	fmt.Println("  me                        Show your identity and role")
	fmt.Println("  users                     List all admin users")
	fmt.Println("  users list                List all admin users")
	fmt.Println("  users add                 Register a new admin user")
	fmt.Println("  users edit <id>           Update a user's name and mobile")
	fmt.Println("  users block <id>          Block a user")
	fmt.Println("  users unblock <id>        Unblock a user")
	fmt.Println("  users delete <id>         Remove a user from the roster")
	fmt.Println("  token                     Print the stored API token")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  HELMGATE_URL              Server base URL (default: http://localhost:8080)")
	fmt.Println("  HELMGATE_TOKEN            JWT token (overrides stored credentials)")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  helmgate-admin login --server http://localhost:8080 --email you@example.com")
	fmt.Println("  helmgate-admin users")
	fmt.Println("  helmgate-admin users add --name 'Jo Admin' --mobile '+15550100' --email jo@example.com --password 'longenough'")
	fmt.Println()
}

// credentialsPath returns the path to the stored CLI credentials.
func credentialsPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "admin.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "helmgate", "admin.toml")
}

func loadCredentials() credentials {
	var creds credentials
	_, _ = toml.DecodeFile(credentialsPath(), &creds)

	if url := os.Getenv("HELMGATE_URL"); url != "" {
		creds.Server = url
	}
	if creds.Server == "" {
		creds.Server = "http://localhost:8080"
	}
	if token := os.Getenv("HELMGATE_TOKEN"); token != "" {
		creds.Token = token
	}
	return creds
}

func saveCredentials(creds credentials) error {
	path := credentialsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// apiRequest performs a JSON API call and decodes the response into out.
// Non-2xx responses are returned as errors using the server's error field.
func apiRequest(creds credentials, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(creds.Server, "/")+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+creds.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("request failed: status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

type userResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Mobile      string `json:"mobile"`
	Blocked     bool   `json:"blocked"`
	IsMainAdmin bool   `json:"is_main_admin"`
	CreatedAt   string `json:"created_at"`
	LastLogin   string `json:"last_login"`
}

func cmdLogin(args []string) error {
	creds := loadCredentials()

	var email, password string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--server" || arg == "-s":
			if i+1 >= len(args) {
				return fmt.Errorf("--server requires a value")
			}
			creds.Server = args[i+1]
			i++
		case strings.HasPrefix(arg, "--server="):
			creds.Server = strings.TrimPrefix(arg, "--server=")
		case arg == "--email" || arg == "-e":
			if i+1 >= len(args) {
				return fmt.Errorf("--email requires a value")
			}
			email = args[i+1]
			i++
		case strings.HasPrefix(arg, "--email="):
			email = strings.TrimPrefix(arg, "--email=")
		case arg == "--password" || arg == "-p":
			if i+1 >= len(args) {
				return fmt.Errorf("--password requires a value")
			}
			password = args[i+1]
			i++
		case strings.HasPrefix(arg, "--password="):
			password = strings.TrimPrefix(arg, "--password=")
		default:
			return fmt.Errorf("unknown argument: %s", arg)
		}
	}

	reader := bufio.NewReader(os.Stdin)
	if email == "" {
		email = promptLine(reader, "Email")
	}
	if password == "" {
		password = promptLine(reader, "Password")
	}
	if email == "" || password == "" {
		return fmt.Errorf("email and password are required")
	}

	var resp struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
		Role      string `json:"role"`
	}
	creds.Token = ""
	if err := apiRequest(creds, http.MethodPost, "/api/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp); err != nil {
		return err
	}

	creds.Email = email
	creds.Token = resp.Token
	if err := saveCredentials(creds); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Signed in as %s (%s)\n", email, resp.Role)
	fmt.Printf("  Token stored in %s\n", credentialsPath())
	return nil
}

func cmdMe() error {
	creds := loadCredentials()
	if creds.Token == "" {
		return fmt.Errorf("not signed in: run 'helmgate-admin login' first")
	}

	var resp struct {
		User userResponse `json:"user"`
		Role string       `json:"role"`
	}
	if err := apiRequest(creds, http.MethodGet, "/api/me", nil, &resp); err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)

	fmt.Println()
	cyan.Println("  Identity")
	cyan.Println("  --------")
	fmt.Printf("  ID:     %s\n", resp.User.ID)
	fmt.Printf("  Name:   %s\n", resp.User.Name)
	fmt.Printf("  Email:  %s\n", resp.User.Email)
	fmt.Printf("  Mobile: %s\n", resp.User.Mobile)
	fmt.Printf("  Role:   %s\n", resp.Role)
	fmt.Println()
	return nil
}

func cmdUsers(args []string) error {
	if len(args) == 0 {
		return cmdUsersList()
	}

	switch args[0] {
	case "list":
		return cmdUsersList()
	case "add":
		return cmdUsersAdd(args[1:])
	case "edit":
		return cmdUsersEdit(args[1:])
	case "block":
		return cmdUsersSetBlocked(args[1:], true)
	case "unblock":
		return cmdUsersSetBlocked(args[1:], false)
	case "delete":
		return cmdUsersDelete(args[1:])
	default:
		return fmt.Errorf("unknown users subcommand: %s", args[0])
	}
}

func cmdUsersList() error {
	creds := loadCredentials()
	if creds.Token == "" {
		return fmt.Errorf("not signed in: run 'helmgate-admin login' first")
	}

	var resp struct {
		Users []userResponse `json:"users"`
	}
	if err := apiRequest(creds, http.MethodGet, "/api/users", nil, &resp); err != nil {
		return err
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tNAME\tEMAIL\tMOBILE\tROLE\tSTATUS\tLAST LOGIN")
	fmt.Fprintln(w, "  --\t----\t-----\t------\t----\t------\t----------")

	for _, u := range resp.Users {
		role := "admin"
		if u.IsMainAdmin {
			role = "main_admin"
		}
		status := "active"
		if u.Blocked {
			status = "blocked"
		}
		lastLogin := u.LastLogin
		if t, err := time.Parse(time.RFC3339, u.LastLogin); err == nil {
			lastLogin = t.Format("Jan 02 15:04")
		} else if lastLogin == "" {
			lastLogin = "-"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(u.ID, 12), u.Name, u.Email, u.Mobile, role, status, lastLogin)
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdUsersAdd(args []string) error {
	creds := loadCredentials()
	if creds.Token == "" {
		return fmt.Errorf("not signed in: run 'helmgate-admin login' first")
	}

	var name, mobile, email, password string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--name":
			if i+1 >= len(args) {
				return fmt.Errorf("--name requires a value")
			}
			name = args[i+1]
			i++
		case strings.HasPrefix(arg, "--name="):
			name = strings.TrimPrefix(arg, "--name=")
		case arg == "--mobile":
			if i+1 >= len(args) {
				return fmt.Errorf("--mobile requires a value")
			}
			mobile = args[i+1]
			i++
		case strings.HasPrefix(arg, "--mobile="):
			mobile = strings.TrimPrefix(arg, "--mobile=")
		case arg == "--email":
			if i+1 >= len(args) {
				return fmt.Errorf("--email requires a value")
			}
			email = args[i+1]
			i++
		case strings.HasPrefix(arg, "--email="):
			email = strings.TrimPrefix(arg, "--email=")
		case arg == "--password":
			if i+1 >= len(args) {
				return fmt.Errorf("--password requires a value")
			}
			password = args[i+1]
			i++
		case strings.HasPrefix(arg, "--password="):
			password = strings.TrimPrefix(arg, "--password=")
		default:
			return fmt.Errorf("unknown argument: %s", arg)
		}
	}

	if name == "" || mobile == "" || email == "" || password == "" {
		return fmt.Errorf("--name, --mobile, --email, and --password are all required")
	}

	var resp struct {
		User userResponse `json:"user"`
	}
	if err := apiRequest(creds, http.MethodPost, "/api/users", map[string]string{
		"name":     name,
		"mobile":   mobile,
		"email":    email,
		"password": password,
	}, &resp); err != nil {
		return err
	}

	color.New(color.FgGreen).Printf("✓ User added: %s (%s)\n", resp.User.Name, resp.User.ID)
	return nil
}

func cmdUsersEdit(args []string) error {
	creds := loadCredentials()
	if creds.Token == "" {
		return fmt.Errorf("not signed in: run 'helmgate-admin login' first")
	}

	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("usage: helmgate-admin users edit <id> --name NAME --mobile MOBILE")
	}
	id := args[0]

	var name, mobile string
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		switch {
		case arg == "--name":
			if i+1 >= len(rest) {
				return fmt.Errorf("--name requires a value")
			}
			name = rest[i+1]
			i++
		case strings.HasPrefix(arg, "--name="):
			name = strings.TrimPrefix(arg, "--name=")
		case arg == "--mobile":
			if i+1 >= len(rest) {
				return fmt.Errorf("--mobile requires a value")
			}
			mobile = rest[i+1]
			i++
		case strings.HasPrefix(arg, "--mobile="):
			mobile = strings.TrimPrefix(arg, "--mobile=")
		default:
			return fmt.Errorf("unknown argument: %s", arg)
		}
	}

	if name == "" || mobile == "" {
		return fmt.Errorf("--name and --mobile are both required")
	}

	if err := apiRequest(creds, http.MethodPatch, "/api/users/"+id, map[string]string{
		"name":   name,
		"mobile": mobile,
	}, nil); err != nil {
		return err
	}

	color.New(color.FgGreen).Println("✓ User updated")
	return nil
}

func cmdUsersSetBlocked(args []string, blocked bool) error {
	creds := loadCredentials()
	if creds.Token == "" {
		return fmt.Errorf("not signed in: run 'helmgate-admin login' first")
	}

	if len(args) < 1 {
		return fmt.Errorf("usage: helmgate-admin users block|unblock <id>")
	}
	id := args[0]

	action := "block"
	if !blocked {
		action = "unblock"
	}

	if err := apiRequest(creds, http.MethodPost, "/api/users/"+id+"/"+action, nil, nil); err != nil {
		return err
	}

	if blocked {
		color.New(color.FgYellow).Println("✓ User blocked")
	} else {
		color.New(color.FgGreen).Println("✓ User unblocked")
	}
	return nil
}

func cmdUsersDelete(args []string) error {
	creds := loadCredentials()
	if creds.Token == "" {
		return fmt.Errorf("not signed in: run 'helmgate-admin login' first")
	}

	if len(args) < 1 {
		return fmt.Errorf("usage: helmgate-admin users delete <id>")
	}
	id := args[0]

	var resp struct {
		Status  string `json:"status"`
		Warning string `json:"warning"`
	}
	if err := apiRequest(creds, http.MethodDelete, "/api/users/"+id, nil, &resp); err != nil {
		return err
	}

	color.New(color.FgGreen).Println("✓ User deleted")
	if resp.Warning != "" {
		color.New(color.FgYellow).Printf("  Warning: %s\n", resp.Warning)
	}
	return nil
}

func cmdToken() error {
	creds := loadCredentials()
	if creds.Token == "" {
		return fmt.Errorf("no token stored: run 'helmgate-admin login' first")
	}
	fmt.Println(creds.Token)
	return nil
}

func promptLine(reader *bufio.Reader, question string) string {
	fmt.Printf("%s: ", question)
	input, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println()
		return ""
	}
	return strings.TrimSpace(input)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
