package cli

import (
	"fmt"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/config"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/vapid"
)

func newKeygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a new VAPID key pair as environment variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			priv, pub, err := webpush.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			// Round-trip through the signer's parser so a bad pair never gets printed.
			if _, err := vapid.ParsePrivateKey(vapid.KeyPair{PublicKey: pub, PrivateKey: priv}); err != nil {
				return fmt.Errorf("generated key pair is unusable: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s=%s\n", config.KeyVAPIDPublicKey, pub)
			fmt.Fprintf(out, "%s=%s\n", config.KeyVAPIDPrivateKey, priv)
			return nil
		},
	}
}
