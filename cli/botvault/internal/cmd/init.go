package cmd

import (
	"fmt"
	"log"
	"os"
	"path"
	"strconv"

	"github.com/botvault-sys/botvault-go/application"
	"github.com/botvault-sys/botvault-go/application/server"
	"github.com/botvault-sys/botvault-go/application/testutil"
	"github.com/botvault-sys/botvault-go/cli"
	"github.com/botvault-sys/botvault-go/crypto/sign"
	"github.com/botvault-sys/botvault-go/protocol/guard"
	"github.com/botvault-sys/botvault-go/utils"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = cli.NewInitCommand("BotVault server", initRunFunc)

func init() {
	RootCmd.AddCommand(initCmd)
	initCmd.Flags().StringP("dir", "d", ".", "Location of directory for storing generated files")
	initCmd.Flags().BoolP("cert", "c", false, "Generate self-signed ssl keys/cert with sane defaults")
}

func initRunFunc(cmd *cobra.Command, args []string) {
	dir := cmd.Flag("dir").Value.String()
	mkConfig(dir)
	sk := mkSigningKey(dir)
	if sk != nil {
		bootstrapAdmin(dir, sk)
	}

	cert, err := strconv.ParseBool(cmd.Flag("cert").Value.String())
	if err == nil && cert {
		testutil.CreateTLSCert(dir)
	}
}

func mkConfig(dir string) {
	file := path.Join(dir, "config.toml")
	addrs := []*server.Address{
		{
			ServerAddress: &application.ServerAddress{
				Address: "unix:///tmp/botvault.sock",
			},
			AllowSubmission: true,
			AllowReview:     true,
			AllowEngine:     true,
		},
		{
			ServerAddress: &application.ServerAddress{
				Address:     "tcp://0.0.0.0:3000",
				TLSCertPath: "server.pem",
				TLSKeyPath:  "server.key",
			},
			AllowSubmission: true,
		},
	}
	logger := &application.LoggerConfig{
		EnableStacktrace: true,
		Environment:      "development",
		Path:             "botvault.log",
	}

	policies := server.NewPolicies("sign.priv", nil)

	conf := server.NewConfig(file, "toml", addrs, logger, "data", policies, nil)
	if err := conf.Save(); err != nil {
		log.Println(err)
	}
}

func mkSigningKey(dir string) sign.PrivateKey {
	sk, err := sign.GenerateKey()
	if err != nil {
		log.Print(err)
		return nil
	}
	pk, _ := sk.Public()
	if err := utils.WriteFile(path.Join(dir, "sign.priv"), sk, 0600); err != nil {
		log.Println(err)
		return nil
	}
	if err := utils.WriteFile(path.Join(dir, "sign.pub"), pk, 0600); err != nil {
		log.Println(err)
		return nil
	}
	return sk
}

// bootstrapAdmin creates the initial reviewer account and prints its
// random password exactly once; it is never stored in the clear.
func bootstrapAdmin(dir string, sk sign.PrivateKey) {
	dataDir := path.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		log.Println(err)
		return
	}
	g, quarantined, err := guard.New(path.Join(dataDir, "admins.json"),
		server.NewPolicies("sign.priv", sk).NewRateState(), sk)
	if err != nil {
		log.Println(err)
		return
	}
	if quarantined != "" {
		log.Printf("Existing admin table was corrupt, quarantined to %s", quarantined)
	}
	password, err := g.Bootstrap("admin")
	if err != nil {
		log.Println(err)
		return
	}
	fmt.Println("Created reviewer account \"admin\".")
	fmt.Println("Initial password (shown only once, change it after first login):")
	fmt.Println("  " + password)
}
