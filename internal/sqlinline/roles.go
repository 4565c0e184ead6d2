package sqlinline

// QInsertStaffRole mirrors QInsertPatient's cap guard, bounded by the plan's
// staff role allowance.
const QInsertStaffRole = `--sql 9b7e04d2-51c8-4a3f-a6e9-7f2b3c08d194
with occupancy as (
    select count(*)::int as n
    from staff_roles
    where clinic_id = $1
)
insert into staff_roles (id, clinic_id, name, permissions, created_at)
select gen_random_uuid(), $1, $2, $3::jsonb, now()
from occupancy
where occupancy.n < $4
returning id, clinic_id, name, permissions, created_at;
`

const QSelectStaffRoleByID = `--sql e2c59a16-7d40-4b82-93fc-0a81b64d27e5
select id, clinic_id, name, permissions, created_at
from staff_roles
where id = $1::uuid
  and clinic_id = $2::uuid
limit 1;
`

const QListStaffRoles = `--sql 74a6e0c3-2f8b-4d91-b5d7-c41209fa863b
select id, clinic_id, name, permissions, created_at
from staff_roles
where clinic_id = $1::uuid
order by created_at;
`

const QDeleteStaffRole = `--sql 0c483f9d-ab52-4716-9e20-63b7d1e8c5f2
delete from staff_roles
where id = $1::uuid
  and clinic_id = $2::uuid;
`
