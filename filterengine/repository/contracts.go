package repository

import "github.com/AzielCF/az-smartfilter/filterengine/domain"

var (
	_ domain.IQueryCache  = (*MemoryQueryCache)(nil)
	_ domain.IQueryCache  = (*ValkeyQueryCache)(nil)
	_ domain.IRateLimiter = (*MemoryRateLimiter)(nil)
	_ domain.IRateLimiter = (*ValkeyRateLimiter)(nil)
)
