package tent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstSuccess(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	tried := []int{}
	rejected := []int{}
	attempt := func(ctx context.Context, c int) (string, error) {
		tried = append(tried, c)
		if c%2 == 1 {
			return "", fmt.Errorf("odd candidate")
		}
		return fmt.Sprintf("val-%d", c), nil
	}
	onReject := func(c int, err error) {
		rejected = append(rejected, c)
	}

	val, winner, err := firstSuccess(ctx, []int{1, 3, 4, 6}, attempt, onReject)
	assert.NoError(err)
	assert.Equal("val-4", val)
	assert.Equal(4, winner)
	assert.Equal([]int{1, 3, 4}, tried)
	assert.Equal([]int{1, 3}, rejected)

	_, _, err = firstSuccess(ctx, []int{1, 3}, attempt, nil)
	assert.Error(err)
	assert.Contains(err.Error(), "1: odd candidate")
	assert.Contains(err.Error(), "3: odd candidate")

	_, _, err = firstSuccess(ctx, []int{}, attempt, nil)
	assert.ErrorIs(err, errNoCandidates)
}

func TestFirstSuccessCanceled(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	count := 0
	_, _, err := firstSuccess(ctx, []string{"a", "b", "c"}, func(ctx context.Context, c string) (int, error) {
		count++
		cancel()
		return 0, errors.New("fail")
	}, nil)
	assert.ErrorIs(err, context.Canceled)
	assert.Equal(1, count)
}
