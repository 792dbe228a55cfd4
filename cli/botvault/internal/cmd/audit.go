package cmd

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"

	"github.com/botvault-sys/botvault-go/application"
	"github.com/botvault-sys/botvault-go/protocol/guard"
	"github.com/spf13/cobra"
)

// auditCmd verifies the server's audit trail offline, against the
// published audit public key, without going through the server at all.
// A reviewer whose account is compromised cannot hide their tracks
// from this check.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Verify the integrity of the audit trail.",
	Long: `Verify the integrity of the audit trail.

Checks every signature and chain link of the retained audit events
directly from the admin table on disk, using the audit public key.`,
	Run: auditRunFunc,
}

func init() {
	RootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringP("key", "k", "sign.pub", "Path to the audit signing public key")
	auditCmd.Flags().StringP("admins", "a", "data/admins.json", "Path to the admin table")
}

func auditRunFunc(cmd *cobra.Command, args []string) {
	keyPath := cmd.Flag("key").Value.String()
	adminsPath := cmd.Flag("admins").Value.String()

	pk, err := application.LoadSigningPubKey(keyPath, ".")
	if err != nil {
		log.Fatal(err)
	}

	buf, err := ioutil.ReadFile(adminsPath)
	if err != nil {
		log.Fatal(err)
	}
	var table struct {
		AuditLog []*guard.AuditEvent `json:"audit_log"`
	}
	if err := json.Unmarshal(buf, &table); err != nil {
		log.Fatalf("Cannot parse admin table: %v", err)
	}

	if err := guard.VerifyChain(table.AuditLog, pk); err != nil {
		log.Fatalf("AUDIT TRAIL BROKEN: %v", err)
	}
	fmt.Printf("Audit trail intact: %d events verified.\n", len(table.AuditLog))
}
