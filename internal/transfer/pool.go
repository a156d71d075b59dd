package transfer

import (
	"context"
	"errors"
	"sync"
)

// runPool applies fn to every file. With one worker, files are processed
// sequentially and results keep input order. With more workers, files are
// fanned out and results arrive in completion order.
//
// All files are attempted even after a failure; the joined error reports
// every failure at once.
func runPool(ctx context.Context, files []FileContext, workers int, fn func(context.Context, FileContext) (FileContext, error)) ([]FileContext, error) {
	if workers <= 1 {
		results := make([]FileContext, 0, len(files))
		var errs []error
		for _, file := range files {
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				break
			}
			result, err := fn(ctx, file)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			results = append(results, result)
		}
		return results, errors.Join(errs...)
	}

	jobs := make(chan FileContext)
	type outcome struct {
		file FileContext
		err  error
	}
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				result, err := fn(ctx, file)
				outcomes <- outcome{file: result, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, file := range files {
			select {
			case jobs <- file:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	results := make([]FileContext, 0, len(files))
	var errs []error
	for out := range outcomes {
		if out.err != nil {
			errs = append(errs, out.err)
			continue
		}
		results = append(results, out.file)
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return results, errors.Join(errs...)
}
