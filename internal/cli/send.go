package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/models"
)

type sendOptions struct {
	req      models.DispatchRequest
	data     models.NotificationData
	viaRedis bool
}

func (o *sendOptions) request() models.DispatchRequest {
	req := o.req
	if o.data != (models.NotificationData{}) {
		data := o.data
		req.Data = &data
	}
	return req
}

func newSendCommand(opts *rootOptions) *cobra.Command {
	so := &sendOptions{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Push a notification to every device of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := so.request()
			if err := req.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if so.viaRedis {
				return a.redis.PublishDispatch(ctx, req)
			}
			res, err := a.dispatcher(nil).Dispatch(ctx, req)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&so.req.UserID, "user", "", "target user id")
	f.StringVar(&so.req.Title, "title", "", "notification title")
	f.StringVar(&so.req.Body, "body", "", "notification body")
	f.StringVar(&so.data.Type, "type", "", fmt.Sprintf("notification type (%s, %s, %s, %s)",
		models.NotificationDirectMessage, models.NotificationGroupMessage, models.NotificationPublicMessage, models.NotificationCall))
	f.StringVar(&so.data.SenderID, "sender", "", "sender id for direct messages")
	f.StringVar(&so.data.GroupID, "group", "", "group id for group messages")
	f.StringVar(&so.data.URL, "url", "", "path opened on click for other types")
	f.BoolVar(&so.viaRedis, "via-redis", false, "publish on the dispatch bus instead of sending directly")
	return cmd
}
