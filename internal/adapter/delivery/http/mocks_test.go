package http

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type MockURLUseCase struct {
	mock.Mock
}

func (uc *MockURLUseCase) ShortURL(shortCode string) string {
	return "http://localhost:8828/" + shortCode
}

func (uc *MockURLUseCase) ShortenURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	args := uc.Called(ctx, originalURL)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (uc *MockURLUseCase) ResolveShortCode(ctx context.Context, shortCode string) (string, error) {
	args := uc.Called(ctx, shortCode)
	return args.String(0), args.Error(1)
}

func (uc *MockURLUseCase) ModifyURL(ctx context.Context, shortCode, originalURL string) (*entity.URL, error) {
	args := uc.Called(ctx, shortCode, originalURL)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (uc *MockURLUseCase) DeactivateURL(ctx context.Context, shortCode string) error {
	args := uc.Called(ctx, shortCode)
	return args.Error(0)
}

func (uc *MockURLUseCase) GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := uc.Called(ctx, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (uc *MockURLUseCase) Health(ctx context.Context) entity.Health {
	args := uc.Called(ctx)
	return args.Get(0).(entity.Health)
}
