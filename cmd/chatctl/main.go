// chatctl is an interactive client for the messaging API.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/auth"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/chatclient"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"

	"github.com/c-bata/go-prompt"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	_ = godotenv.Load()

	apiURL := pflag.String("api", "http://localhost:8080", "HTTP API base URL")
	wsURL := pflag.String("ws", "ws://localhost:8081/ws", "room socket URL")
	token := pflag.String("token", os.Getenv("EVENTHIVE_TOKEN"), "session token; minted locally from --secret when empty")
	secret := pflag.String("secret", os.Getenv("EVENTHIVE_AUTH_JWTSECRET"), "signing secret for locally minted dev tokens")
	userID := pflag.StringP("user", "u", "", "user id for a minted token")
	name := pflag.String("name", "", "display name for a minted token")
	pflag.Parse()

	if *token == "" {
		if *secret == "" || *userID == "" {
			fmt.Fprintln(os.Stderr, "either --token or both --secret and --user are required")
			os.Exit(2)
		}
		displayName := *name
		if displayName == "" {
			displayName = *userID
		}
		var err error
		*token, err = auth.IssueToken([]byte(*secret), model.Identity{ID: *userID, DisplayName: displayName, Username: *userID}, 24*time.Hour)
		if err != nil {
			fmt.Fprintln(os.Stderr, "mint token:", err)
			os.Exit(1)
		}
	}

	sh := newShell(chatclient.New(*apiURL, *wsURL, *token), os.Stdout)

	fmt.Println("EventHive chat. Type 'help' to see available commands")
	p := prompt.New(
		sh.execute,
		completer,
		prompt.OptionPrefix("> "),
		prompt.OptionTitle("chatctl"),
		prompt.OptionHistory([]string{}),
	)
	p.Run()
}

func completer(d prompt.Document) []prompt.Suggest {
	if d.TextBeforeCursor() == "" || len(splitArgs(d.TextBeforeCursor())) > 1 {
		return []prompt.Suggest{}
	}
	return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
}
