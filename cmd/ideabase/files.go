package main

import (
	"fmt"

	"github.com/autom8ter/ideabase"
	"github.com/autom8ter/ideabase/blob"
	"github.com/spf13/cobra"
)

func filesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "manage the file storage bucket",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ensure-bucket",
		Short: "create the bucket if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := openBlob()
			if err != nil {
				return err
			}
			if err := files.EnsureBucket(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("bucket ready: %s\n", files.Bucket())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "ls [prefix]",
		Short: "list stored files, optionally under an idea id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := openBlob()
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) > 0 {
				prefix = args[0]
			}
			objects, err := files.List(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			for _, obj := range objects {
				fmt.Printf("%s\t%d\t%s\n", obj.LastModified.Format("2006-01-02 15:04:05"), obj.Size, obj.Key)
			}
			return nil
		},
	})
	return cmd
}

func openBlob() (*blob.Store, error) {
	cfg, err := ideabase.LoadConfig(envPrefix)
	if err != nil {
		return nil, err
	}
	return blob.New(cfg.Blob)
}
