// dvctl: herramienta de admin para los stores del bot (listar, volcar, migrar).
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dvctl",
		Short: "Admin tool for the dynamic voice bot stores",
		Long: `dvctl reads the same STORE_DRIVER / DATA_DIR / DATABASE_URL / SQLITE_PATH
env as the bot and lets you inspect or migrate the key-value stores.`,
		SilenceUsage: true,
	}
	root.AddCommand(storesCmd())
	root.AddCommand(dumpCmd())
	root.AddCommand(migrateCmd())
	return root
}
