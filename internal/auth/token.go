package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL matches the room-auth cookie lifetime: a verified
// password keeps a browser in the room for 30 days.
const DefaultTokenTTL = 30 * 24 * time.Hour

// RoomClaims is the payload of a room token. A token proves exactly
// one thing: the bearer knew the password for RoomID at issue time.
// There is no user identity — display names are chosen per connection.
type RoomClaims struct {
	RoomID uuid.UUID `json:"room_id"`
	jwt.RegisteredClaims
}

// CreateRoomToken mints a signed HS256 token scoped to one room.
func CreateRoomToken(roomID uuid.UUID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := RoomClaims{
		RoomID: roomID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "termchat",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseRoomToken validates signature, expiry, and signing method, and
// returns the claims. The method check pins the algorithm to HMAC so a
// token signed with "none" or an asymmetric key is rejected before
// signature verification.
func ParseRoomToken(tokenString, secret string) (*RoomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RoomClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*RoomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// VerifyRoomToken reports whether the token is valid and was issued
// for this specific room. A token for room A never opens room B.
func VerifyRoomToken(tokenString string, roomID uuid.UUID, secret string) bool {
	claims, err := ParseRoomToken(tokenString, secret)
	if err != nil {
		return false
	}
	return claims.RoomID == roomID
}
