package idempotency

import (
	"context"
	"fmt"
	"time"
)

func ExampleGuard_Claim() {
	ctx := context.Background()
	guard, _ := NewGuard(newMemoryStore(), 72*time.Hour)

	for i := 0; i < 2; i++ {
		first, _ := guard.Claim(ctx, "paystack-webhook", "MM_INV-0007")
		if !first {
			fmt.Println("duplicate delivery")
			continue
		}
		fmt.Println("applying payment")
	}
	// Output:
	// applying payment
	// duplicate delivery
}
