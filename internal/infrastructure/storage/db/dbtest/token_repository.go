package dbtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/ocean-ntp1/internal/core/domain"
)

func TestTokenRepository(
	t *testing.T, ctx context.Context, tokenRepo domain.TokenRepository,
) {
	tokens := []*domain.Token{
		{TokenID: "Y", Name: "Yellow", Symbol: "YLW", Decimals: 2},
		{TokenID: "X", Symbol: "XXX"},
	}

	count, err := tokenRepo.AddTokens(ctx, tokens)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = tokenRepo.AddTokens(ctx, []*domain.Token{
		{TokenID: "X", Name: "Renamed"},
	})
	require.NoError(t, err)
	require.Zero(t, count)

	token, err := tokenRepo.GetToken(ctx, "X")
	require.NoError(t, err)
	require.Equal(t, *tokens[1], *token)
	require.Equal(t, "XXX", token.DisplayName())

	token, err = tokenRepo.GetToken(ctx, "Z")
	require.True(t, errors.Is(err, domain.ErrTokenNotFound))
	require.Nil(t, token)

	all, err := tokenRepo.GetAllTokens(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "X", all[0].TokenID)
	require.Equal(t, *tokens[0], *all[1])
}
