package sqlinline

// Plan administration queries used by planctl. The scanUser path in the repo
// package rejects legacy codes, so these work on raw columns instead.

const QSelectLegacyPlanUsers = `--sql 6fd19c4a-38e2-47b5-9d01-e85a2c73b6f0
select id, email, plan
from users
where plan = any($1::text[])
order by created_at
limit $2;
`

// QMigrateUserPlanCode rewrites a plan code only while the row still carries
// the expected old code, so concurrent runs cannot double-migrate.
const QMigrateUserPlanCode = `--sql b4e82d07-1f5a-4c96-8a3d-27c09e61f48b
update users
set plan = $2,
    updated_at = now()
where id = $1::uuid
  and plan = $3
returning id, email, plan;
`
