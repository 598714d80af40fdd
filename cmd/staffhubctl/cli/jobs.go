package cli

import (
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/staffhub/staffhub/jobs"
)

func newJobsCommand() *cobra.Command {
	var redisAddr string
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "", "Redis address. Defaults to REDIS_ADDR.")

	cmd.AddCommand(&cobra.Command{
		Use:   "reconcile-matrix",
		Short: "Re-validate the stored matrix and tell every instance to reload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := jobs.RedisOpt(resolveRedisAddr(redisAddr))
			if err != nil {
				return err
			}
			client := jobs.NewClient(opt)
			defer func() { _ = client.Close() }()
			info, err := client.EnqueueMatrixReconcile(cmd.Context(), "manual")
			if err != nil {
				return err
			}
			cmd.Printf("Enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print queue depth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := jobs.RedisOpt(resolveRedisAddr(redisAddr))
			if err != nil {
				return err
			}
			inspector := asynq.NewInspector(opt)
			defer func() { _ = inspector.Close() }()
			for _, queue := range []string{jobs.QueueAudit, jobs.QueueDefault} {
				info, err := inspector.GetQueueInfo(queue)
				if err != nil {
					cmd.Printf("%s: %v\n", queue, err)
					continue
				}
				cmd.Printf("%s: pending=%d active=%d retry=%d archived=%d\n", queue, info.Pending, info.Active, info.Retry, info.Archived)
			}
			return nil
		},
	})
	return cmd
}

func resolveRedisAddr(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if addr := lookupEnv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "127.0.0.1:6379"
}
