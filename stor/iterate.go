package stor

import (
	"context"
	"errors"
)

// iterateDirectory lazily walks all entries of a directory by following the services marker based pagination.
//
// NOTE: The service repeats the marker entry at the start of each follow-up page, it's deduplicated here so the caller
// sees each entry exactly once.
func iterateDirectory(ctx context.Context, client Client, opts IterateDirectoryOptions) error {
	if opts.Func == nil {
		return errors.New("an iteration function is required")
	}

	var (
		marker string
		seen   int
	)

	for {
		listing, err := client.ListDirectory(ctx, ListDirectoryOptions{
			Path:   opts.Path,
			Limit:  opts.PageLimit,
			Marker: marker,
		})
		if err != nil {
			return err
		}

		entries := listing.Entries

		if marker != "" && len(entries) > 0 && entries[0].Name == marker {
			entries = entries[1:]
		}

		if len(entries) == 0 {
			return nil
		}

		for _, entry := range entries {
			if err := opts.Func(entry); err != nil {
				return err
			}
		}

		seen += len(entries)

		if seen >= listing.ResultSetSize {
			return nil
		}

		marker = entries[len(entries)-1].Name
	}
}
