package auth

import "context"

type Service struct {
	jwt *JWTManager
}

func NewService(jwtManager *JWTManager) *Service {
	return &Service{jwt: jwtManager}
}

func (s *Service) ValidateAccessToken(_ context.Context, accessToken string) (AccessClaims, error) {
	if s == nil || s.jwt == nil {
		return AccessClaims{}, ErrUnauthorized
	}

	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}
	if claims.Role == "" {
		return AccessClaims{}, ErrUnauthorized
	}
	return claims, nil
}
