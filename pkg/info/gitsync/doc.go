// Package gitsync keeps a local checkout of a Git repository that holds the
// reference data file.
//
// A Repository clones the configured branch on first Sync and pulls on every
// later call. The reference file inside the checkout is served by
// info.FileDirectory, which re-reads it per request, so a pull is picked up
// by the next export without a restart.
//
// Basic usage:
//
//	repo, err := gitsync.NewRepository(&cfg.Reference.Git, cfg.Reference.Path)
//	if err != nil {
//	    return err
//	}
//	if _, err := repo.Sync(ctx); err != nil {
//	    return err
//	}
//	directory := info.NewFileDirectory(repo.ReferencePath())
//
//	poller := gitsync.NewPoller(repo, cfg.Reference.Git.PollInterval)
//	go poller.Run(ctx)
package gitsync
