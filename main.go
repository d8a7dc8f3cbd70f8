// ABOUTME: Entry point for the pipeboard server, board UI, MCP server and CLI
// ABOUTME: Loads configuration and logging, then routes to a subcommand
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/harperreed/pipeboard/cli"
	"github.com/harperreed/pipeboard/config"
	"github.com/harperreed/pipeboard/logging"
)

const version = "0.2.0"

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "", "Config file (default: ~/.config/pipeboard/config.yaml)")
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("pipeboard version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}
	command, commandArgs := args[0], args[1:]

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// The board owns the terminal, so its logs go to a file.
	if command == "board" && cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(xdg.StateHome, "pipeboard", "board.log")
	}

	logger, closer, err := logging.New("pipeboard", cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx := context.Background()

	switch command {
	case "serve":
		err = cli.ServeCommand(cfg, logger, commandArgs)
	case "token":
		err = cli.TokenCommand(cfg, commandArgs)
	case "gmail-login":
		err = cli.GmailLoginCommand(cfg, commandArgs)
	case "board":
		err = cli.BoardCommand(cfg, logger, commandArgs)
	case "mcp":
		err = cli.MCPCommand(cfg, logger, version)

	case "pipelines":
		err = cli.ListPipelinesCommand(ctx, cfg, logger, commandArgs)
	case "add-pipeline":
		err = cli.AddPipelineCommand(ctx, cfg, logger, commandArgs)
	case "contacts":
		err = cli.ListContactsCommand(ctx, cfg, logger, commandArgs)
	case "add-contact":
		err = cli.AddContactCommand(ctx, cfg, logger, commandArgs)
	case "deals":
		err = cli.ListDealsCommand(ctx, cfg, logger, commandArgs)
	case "add-deal":
		err = cli.AddDealCommand(ctx, cfg, logger, commandArgs)
	case "move":
		err = cli.MoveDealCommand(ctx, cfg, logger, commandArgs)
	case "delete-deal":
		err = cli.DeleteDealCommand(ctx, cfg, logger, commandArgs)
	case "enroll":
		err = cli.EnrollCommand(ctx, cfg, logger, commandArgs)
	case "viz":
		err = cli.VizCommand(ctx, cfg, logger, commandArgs)

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Debug().Err(err).Str("command", command).Msg("command failed")
		_ = closer.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`pipeboard v%s - Sales pipeline kanban board

USAGE:
  pipeboard [global flags] <command> [flags] [args]

GLOBAL FLAGS:
  --version              Show version and exit
  --config <path>        Config file (default: ~/.config/pipeboard/config.yaml)

SERVER:
  pipeboard serve          Run the pipeline REST API
    --addr <addr>            Listen address (default: server.addr)
    --db-path <path>         Database path (default: ~/.local/share/pipeboard/pipeboard.db)

  pipeboard token          Print a bearer token for clients
    --subject <name>         Who the token is for (required)
    --ttl <duration>         Lifetime (default: server.token_ttl)

  pipeboard gmail-login    Authorize the gmail mailer
    --token <path>           Where to store the token

BOARD:
  pipeboard board          Open the interactive kanban board
  pipeboard mcp            Start the MCP server on stdio

PIPELINES & CONTACTS:
  pipeboard pipelines      List pipelines and their stages
  pipeboard add-pipeline   Create a pipeline
    --name <name>            Pipeline name (required)
    --stages <list>          Stages in order, e.g. Lead:10,Qualified:40,Won:100
    --default                Make it the default pipeline

  pipeboard contacts       List contacts
    --query <text>           Search by name, email or company
  pipeboard add-contact    Create a contact
    --name <name>            Contact name (required)
    --email, --phone, --company, --status

DEALS:
  pipeboard deals          Show the board as a table
    --pipeline <name>        Pipeline (default: the default pipeline)
    --search <text>          Match title, contact name or company
    --company <name>         Filter by company
    --status <status>        Filter by contact status

  pipeboard add-deal       Create a deal in the first stage
    --title <title>          Deal title (required)
    --contact <id|name>      Contact (required)
    --value <cents>          Value in cents
    --currency <code>        Currency (default: USD)
    --priority <p>           high, medium or low (default: medium)

  pipeboard move <deal> <stage>         Move a deal to a stage
  pipeboard delete-deal [--yes] <deal>  Delete a deal
  pipeboard enroll [--sequence <name>] <deal>
                                        Enroll the deal's contact and advance the deal

  pipeboard viz            Pipeline stats or graph
    --format <text|dot>      Output format (default: text)
    --output <file>          Output file (default: stdout)

Deal ids may be shortened to the 8-character prefix shown by 'deals'.

EXAMPLES:
  # Run the API and point the client at it
  PIPEBOARD_JWT_SECRET=s3cret pipeboard serve
  export PIPEBOARD_TOKEN=$(PIPEBOARD_JWT_SECRET=s3cret pipeboard token --subject me)

  # Build a pipeline and add a deal
  pipeboard add-pipeline --name Sales --default --stages "Lead:10,Qualified:40,Proposal:70,Won:100"
  pipeboard add-deal --title "Enterprise License" --contact "Ada" --value 5000000

  # Move it along
  pipeboard move 3f2a9c1e proposal

`, version)
}
